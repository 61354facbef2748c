package ledger

import (
	"fmt"

	"github.com/davidahmann/complybus/internal/crypto"
	"github.com/davidahmann/complybus/pkg/types"
)

// VerifyEntry recomputes the entry hash and compares it with the stored one.
func VerifyEntry(entry types.DecisionLogEntry) error {
	want, err := EntryHash(entry)
	if err != nil {
		return err
	}
	if !crypto.EqualDigests(want, entry.EntryHash) {
		return fmt.Errorf("%w: %s", ErrEntryHashMismatch, entry.DecisionID)
	}
	return nil
}
