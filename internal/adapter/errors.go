package adapter

import "errors"

var (
	ErrInvalidBaseURL     = errors.New("invalid gateway base url")
	ErrUnexpectedResponse = errors.New("unexpected response body")
)
