// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

// Package authz is role-based authorization on casbin.
//
// The RBAC model and the default policy are embedded (model.conf,
// policy.csv). security.policy_path replaces the embedded policy with a CSV
// file in the same format. Roles form a chain: admin inherits analyst,
// analyst inherits viewer.
//
//	object       action   minimum role
//	predictions  create   viewer
//	predictions  read     viewer
//	retention    read     viewer
//	alerts       read     viewer
//	retention    export   analyst
//	retention    rebuild  admin
package authz
