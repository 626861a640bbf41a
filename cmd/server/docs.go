// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

// @title Retail Churn API
// @version 1.0.0
// @description Churn risk scoring and retention policy analytics.
// @description
// @description `POST /predict` scores one customer and returns the churn probability,
// @description risk tier and recommended retention action. Validation failures return
// @description 422 with a `detail` list; a missing model returns 503.
// @description
// @description Endpoints under `/api/v1` answer with the envelope
// @description `{"success": bool, "data": ..., "error": {"code", "message"}, "meta": {...}}`.
// @description
// @description ## Authentication
// @description
// @description With `auth_mode=jwt`, `/api/v1` requires `Authorization: Bearer <token>`.
// @description Roles: `viewer` (read), `analyst` (read and export), `admin` (all, including rebuild).
//
// @contact.name GitHub Repository
// @contact.url https://github.com/tomtom215/churnwatch/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:8000
// @BasePath /
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT bearer token minted by `churnctl token`.
//
// @tag.name Core
// @tag.description Health, model information and scoring
//
// @tag.name Retention
// @tag.description Retention policy analytics over the loaded customer tables
//
// @tag.name Predictions
// @tag.description Prediction log lookups
//
// @tag.name Realtime
// @tag.description High-risk alert stream
package main
