package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/davidahmann/complybus/internal/crypto"
	"github.com/davidahmann/complybus/pkg/types"
)

var ErrEntryHashMismatch = errors.New("decision entry hash mismatch")

// EntryHash digests the canonical JSON of every entry field except the hash
// itself. Metadata goes through encoding/json first, so any JSON-encodable
// value is accepted.
func EntryHash(entry types.DecisionLogEntry) (string, error) {
	metadata := entry.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	view := map[string]any{
		"decision_id":   entry.DecisionID,
		"agent_name":    entry.AgentName,
		"decision":      entry.Decision,
		"reasoning":     entry.Reasoning,
		"confidence":    entry.Confidence,
		"input_summary": entry.InputSummary,
		"timestamp":     entry.Timestamp.UTC().Format(time.RFC3339Nano),
		"metadata":      metadata,
	}

	canonical, err := crypto.CanonicalizeJSON(view)
	if err != nil {
		return "", fmt.Errorf("hash decision %s: %w", entry.DecisionID, err)
	}
	return crypto.DigestWithPrefix(canonical), nil
}

// SealEntry returns entry with EntryHash filled in.
func SealEntry(entry types.DecisionLogEntry) (types.DecisionLogEntry, error) {
	if strings.TrimSpace(entry.DecisionID) == "" || strings.TrimSpace(entry.AgentName) == "" {
		return types.DecisionLogEntry{}, fmt.Errorf("%w: decision_id and agent_name", types.ErrMissingField)
	}
	hash, err := EntryHash(entry)
	if err != nil {
		return types.DecisionLogEntry{}, err
	}
	entry.EntryHash = hash
	return entry, nil
}
