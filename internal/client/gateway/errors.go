package gateway

import "errors"

var (
	ErrUnavailable = errors.New("gateway unavailable")
	ErrBadRequest  = errors.New("bad request")
)
