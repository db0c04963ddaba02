// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package app contains the error taxonomy shared by every layer of the sync
// engine and the reference backend, together with the human-readable
// messages written into HTTP response bodies.
//
// All Msg* constants describe the outcome of an operation. Keeping them in
// one place ensures consistent wording between handlers and middleware.
package app

const (
	// MsgInvalidDataProvided is returned when the request body cannot be
	// decoded or is not a JSON object.
	MsgInvalidDataProvided = "invalid data provided"

	// MsgInternalServerError is returned when an unexpected server-side
	// failure occurs that the client cannot resolve.
	MsgInternalServerError = "internal server error"

	// MsgTokenIsExpiredOrInvalid is returned when a JWT bearer token is
	// either expired or cannot be verified (e.g. wrong signature).
	MsgTokenIsExpiredOrInvalid = "token is expired or invalid"

	// MsgNoUserIDProvided is returned when a handler requires a user ID but
	// none is present in the request context.
	MsgNoUserIDProvided = "no user ID provided"

	// MsgUnknownCollection is returned when the collection path segment is
	// not part of the registry.
	MsgUnknownCollection = "unknown collection"

	// MsgEmptyPayload is returned when an insert or update carries no fields.
	MsgEmptyPayload = "empty payload"

	// MsgTemporaryIDRejected is returned when a payload still references a
	// client-side temporary identifier.
	MsgTemporaryIDRejected = "temporary identifiers are not accepted"

	// MsgRecordNotFound is returned when an update targets a record that does
	// not exist for the current user.
	MsgRecordNotFound = "record not found"

	// MsgRecordAlreadyExists is returned when an insert collides with an
	// existing record id.
	MsgRecordAlreadyExists = "record already exists"
)
