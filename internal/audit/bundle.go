package audit

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/davidahmann/complybus/internal/crypto"
	"github.com/davidahmann/complybus/pkg/types"
)

const BundleSchema = "complybus.audit_bundle.v1"

const (
	bundleDecisions = "decisions.json"
	bundleSummary   = "summary.json"
	bundlePlaybook  = "playbook.yaml"
	bundleManifest  = "manifest.json"
	bundleSums      = "sha256sums.txt"
)

type BundleInput struct {
	Decisions []types.DecisionLogEntry
	Summary   Summary
	Playbook  []byte
}

type Manifest struct {
	Schema        string            `json:"schema"`
	GeneratedAt   string            `json:"generated_at"`
	DecisionCount int               `json:"decision_count"`
	SummaryHash   string            `json:"summary_hash"`
	Files         map[string]string `json:"files"`
}

// ExportBundle packages the JSON export, the summary and, when configured,
// the playbook into a zip with a manifest of per-file digests.
func (x *Exporter) ExportBundle(agentName string, limit int) ([]byte, error) {
	summary, err := x.ExportSummary(agentName)
	if err != nil {
		return nil, err
	}
	return BuildZip(BundleInput{
		Decisions: x.records(agentName, limit),
		Summary:   summary,
		Playbook:  x.playbook,
	})
}

// BuildFiles renders every bundle member. The manifest and checksum list
// cover all other files.
func BuildFiles(in BundleInput) (map[string][]byte, error) {
	if in.Summary.SummaryHash == "" {
		return nil, fmt.Errorf("%w: summary_hash", types.ErrMissingField)
	}
	decisions := in.Decisions
	if decisions == nil {
		decisions = []types.DecisionLogEntry{}
	}

	files := map[string][]byte{}
	var err error
	if files[bundleDecisions], err = json.MarshalIndent(decisions, "", "  "); err != nil {
		return nil, err
	}
	if files[bundleSummary], err = json.MarshalIndent(in.Summary, "", "  "); err != nil {
		return nil, err
	}
	if len(in.Playbook) > 0 {
		files[bundlePlaybook] = in.Playbook
	}

	manifest := Manifest{
		Schema:        BundleSchema,
		GeneratedAt:   in.Summary.GeneratedAt.UTC().Format(time.RFC3339),
		DecisionCount: len(decisions),
		SummaryHash:   in.Summary.SummaryHash,
		Files:         map[string]string{},
	}
	names := sortedNames(files)
	var sums strings.Builder
	for _, name := range names {
		manifest.Files[name] = crypto.DigestWithPrefix(files[name])
		fmt.Fprintf(&sums, "%s  %s\n", crypto.DigestHex(files[name]), name)
	}

	if files[bundleManifest], err = json.MarshalIndent(manifest, "", "  "); err != nil {
		return nil, err
	}
	files[bundleSums] = []byte(sums.String())
	return files, nil
}

func BuildZip(in BundleInput) ([]byte, error) {
	files, err := BuildFiles(in)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := WriteZip(&buf, files); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteZip writes files in name order with a fixed modification time so
// identical inputs produce identical archives.
func WriteZip(w io.Writer, files map[string][]byte) error {
	zw := zip.NewWriter(w)
	for _, name := range sortedNames(files) {
		header := &zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: time.Unix(0, 0).UTC(),
		}
		f, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		if _, err := f.Write(files[name]); err != nil {
			return err
		}
	}
	return zw.Close()
}

func sortedNames(files map[string][]byte) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
