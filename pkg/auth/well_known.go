// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package auth provides authentication and authorization utilities.
package auth

// WellKnownOAuthResourcePath is the RFC 9728 standard path for OAuth Protected
// Resource metadata. Per RFC 9728 Section 3, this endpoint and any subpaths
// under it must be accessible without authentication.
const WellKnownOAuthResourcePath = "/.well-known/oauth-protected-resource"
