package types

import "errors"

var (
	ErrMissingField      = errors.New("missing required field")
	ErrInvalidSeverity   = errors.New("invalid severity")
	ErrInvalidCategory   = errors.New("invalid risk category")
	ErrInvalidEntityType = errors.New("invalid entity type")
	ErrInvalidWeight     = errors.New("weight must be between 0 and 1")
	ErrInvalidValue      = errors.New("value must be between 0 and 100")
	ErrScoreOutOfRange   = errors.New("score must be between 0 and 100")
	ErrInvalidConfidence = errors.New("confidence must be between 0 and 1")
)
