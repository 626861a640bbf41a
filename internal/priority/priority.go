// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

// Package priority computes value-weighted retention priority scores.
//
// A priority score is churn probability multiplied by the estimated 12-month
// customer value. When no value estimate exists a precomputed score is used
// as-is; with neither, the customer is left out of value-weighted ranking.
package priority

import (
	"math"
	"sort"
)

// Score returns p*clv when clv is present, otherwise the supplied score.
// ok is false when neither is present. Negative or zero CLV is not rejected.
func Score(p float64, clv, supplied *float64) (score float64, ok bool) {
	if clv != nil {
		return p * *clv, true
	}
	if supplied != nil {
		return *supplied, true
	}
	return 0, false
}

// Candidate is one customer eligible for ranking.
type Candidate struct {
	CustomerID  string
	Probability float64
	CLV         *float64
	Supplied    *float64
}

// Ranked is a scored candidate with its 1-based position.
type Ranked struct {
	Candidate
	Score float64
	Rank  int
}

// Rank scores candidates, drops those without a value signal and orders the
// rest by score descending. Equal scores are ordered by CustomerID so repeated
// runs over the same data produce the same list.
func Rank(candidates []Candidate) []Ranked {
	out := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		s, ok := Score(c.Probability, c.CLV, c.Supplied)
		if !ok {
			continue
		}
		out = append(out, Ranked{Candidate: c, Score: s})
	}
	SortRanked(out)
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// SortRanked sorts by Score descending, then CustomerID ascending. NaN scores sort last.
func SortRanked(r []Ranked) {
	sort.SliceStable(r, func(i, j int) bool {
		return Less(r[i].Score, r[i].CustomerID, r[j].Score, r[j].CustomerID)
	})
}

// Less is the ranking order shared by every priority list.
func Less(scoreA float64, idA string, scoreB float64, idB string) bool {
	aNaN, bNaN := math.IsNaN(scoreA), math.IsNaN(scoreB)
	switch {
	case aNaN && bNaN:
		return idA < idB
	case aNaN:
		return false
	case bNaN:
		return true
	case scoreA != scoreB:
		return scoreA > scoreB
	default:
		return idA < idB
	}
}

// Quantile returns the q-quantile of values using linear interpolation between
// closest ranks. It returns 0 for an empty input and NaN for a NaN q. q is
// otherwise clamped to [0,1]. NaN values are ignored.
func Quantile(values []float64, q float64) float64 {
	if math.IsNaN(q) {
		return math.NaN()
	}
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return 0
	}
	sort.Float64s(sorted)

	q = math.Max(0, math.Min(1, q))
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
