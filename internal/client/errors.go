package client

import "errors"

var (
	ErrInvalidToken = errors.New("client token is missing or malformed")
	ErrClosed       = errors.New("client is closed")
)
