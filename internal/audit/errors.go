package audit

import "errors"

var (
	ErrDecisionNotFound = errors.New("decision not found")

	ErrPDFExportNotImplemented = errors.New("PDF export is not implemented; use the JSON export for machine-readable output or the summary export for aggregate statistics")
)
