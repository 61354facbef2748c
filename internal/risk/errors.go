package risk

import "errors"

var (
	ErrTrendNotFound       = errors.New("no trend recorded for entity")
	ErrProfileHashMismatch = errors.New("profile hash mismatch")
)
