package utils

import "github.com/google/uuid"

// UUIDGenerator assigns server-side record identifiers. Version 7 ids sort by
// creation time, so list responses come back in insertion order.
type UUIDGenerator struct{}

// NewUUIDGenerator returns the default record id source.
func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// Generate returns a new UUIDv7, or a random UUIDv4 if the clock source fails.
func (UUIDGenerator) Generate() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// NewTraceID returns an identifier attached to every log line of one
// inbound request.
func NewTraceID() string {
	return uuid.NewString()
}
