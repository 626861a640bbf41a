// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package authz

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/tomtom215/churnwatch/internal/logging"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Objects and actions used by the API.
const (
	ObjectPredictions = "predictions"
	ObjectRetention   = "retention"
	ObjectAlerts      = "alerts"

	ActionCreate  = "create"
	ActionRead    = "read"
	ActionExport  = "export"
	ActionRebuild = "rebuild"
)

// Enforcer answers "may role R do A on O".
type Enforcer struct {
	enforcer    *casbin.SyncedEnforcer
	defaultRole string
	source      string
}

// NewEnforcer loads the embedded model with either the policy file at
// policyPath or the embedded default policy when policyPath is empty.
func NewEnforcer(policyPath, defaultRole string) (*Enforcer, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	var (
		enforcer *casbin.SyncedEnforcer
		source   = "embedded"
	)
	if policyPath != "" {
		if _, statErr := os.Stat(policyPath); statErr != nil {
			return nil, fmt.Errorf("failed to read policy file: %w", statErr)
		}
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(policyPath))
		source = policyPath
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadPolicy(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	if defaultRole == "" {
		defaultRole = "viewer"
	}
	logging.Info().
		Str("policy", source).
		Str("default_role", defaultRole).
		Msg("Authorization enforcer initialized")

	return &Enforcer{enforcer: enforcer, defaultRole: defaultRole, source: source}, nil
}

// loadPolicy adds the p and g lines of a policy CSV to the enforcer.
func loadPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch {
		case parts[0] == "p" && len(parts) == 4:
			if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", parts[1:], err)
			}
		case parts[0] == "g" && len(parts) == 3:
			if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", parts[1:], err)
			}
		default:
			return fmt.Errorf("malformed policy line %q", line)
		}
	}
	return nil
}

// Enforce reports whether role may perform action on object. An empty role
// is treated as the default role.
func (e *Enforcer) Enforce(role, object, action string) (bool, error) {
	if role == "" {
		role = e.defaultRole
	}
	allowed, err := e.enforcer.Enforce(role, object, action)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	return allowed, nil
}

// RolesFor returns every role role inherits, including itself.
func (e *Enforcer) RolesFor(role string) []string {
	implicit, err := e.enforcer.GetImplicitRolesForUser(role)
	if err != nil {
		return []string{role}
	}
	return append([]string{role}, implicit...)
}

// DefaultRole is the role assumed for callers without one.
func (e *Enforcer) DefaultRole() string { return e.defaultRole }

// Source is "embedded" or the path of the loaded policy file.
func (e *Enforcer) Source() string { return e.source }
