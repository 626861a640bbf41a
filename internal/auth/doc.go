// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

/*
Package auth authenticates API callers.

Two modes are supported, selected by security.auth_mode:

  - none: every request runs as an anonymous caller holding the configured
    default role. Suitable for local use and tests.
  - jwt: requests must carry an HS256 bearer token (Authorization header or
    the "token" cookie) issued by JWTManager. Tokens carry a username and a
    role; the role is checked by package authz.

Authenticated claims are stored on the request context and read back with
ClaimsFromContext. Failures are written through logging.SecurityLogger with
tokens masked.
*/
package auth
