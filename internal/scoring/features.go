// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package scoring

// CustomerFeatures is the typed record for the default feature set. Its json
// names and field order match DefaultFeatureNames.
type CustomerFeatures struct {
	RecencyDays        float64 `json:"recency_days" yaml:"recency_days" validate:"gte=0"`
	FrequencyInvoices  float64 `json:"frequency_invoices" yaml:"frequency_invoices" validate:"gte=0"`
	Monetary           float64 `json:"monetary" yaml:"monetary"`
	AvgOrderValue      float64 `json:"avg_order_value" yaml:"avg_order_value"`
	AvgItemsPerInvoice float64 `json:"avg_items_per_invoice" yaml:"avg_items_per_invoice" validate:"gte=0"`
	ActiveMonths       float64 `json:"active_months" yaml:"active_months" validate:"gte=0"`
}

// Vector converts the record to a FeatureVector.
func (c CustomerFeatures) Vector() FeatureVector {
	return FeatureVector{
		"recency_days":          c.RecencyDays,
		"frequency_invoices":    c.FrequencyInvoices,
		"monetary":              c.Monetary,
		"avg_order_value":       c.AvgOrderValue,
		"avg_items_per_invoice": c.AvgItemsPerInvoice,
		"active_months":         c.ActiveMonths,
	}
}

// CustomerFeaturesFrom fills the record from a vector; absent names stay zero.
func CustomerFeaturesFrom(v FeatureVector) CustomerFeatures {
	return CustomerFeatures{
		RecencyDays:        v["recency_days"],
		FrequencyInvoices:  v["frequency_invoices"],
		Monetary:           v["monetary"],
		AvgOrderValue:      v["avg_order_value"],
		AvgItemsPerInvoice: v["avg_items_per_invoice"],
		ActiveMonths:       v["active_months"],
	}
}
