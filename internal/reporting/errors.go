package reporting

import "errors"

var (
	ErrInvalidReportRequest = errors.New("invalid report request")
	ErrReportNotFound       = errors.New("report not found")
	ErrReportHashMismatch   = errors.New("report hash mismatch")
)
