// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package validators enforces the input rules of the records backend.
//
// Core concepts:
//   - Validator: generic interface to validate a value, optionally scoped to
//     a subset of its fields.
//
// Usage patterns:
//  1. Inject a Validator into a service.
//  2. Call Validate with the fields the operation needs checked.
//  3. Map the returned sentinel errors to the caller's error kinds.
package validators

import "context"

// Validator validates the provided input and optionally restricts
// validation to specific named fields.
type Validator interface {
	Validate(context.Context, any, ...string) error
}
