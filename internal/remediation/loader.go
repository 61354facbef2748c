package remediation

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/davidahmann/complybus/internal/crypto"
)

var ErrInvalidPlaybook = errors.New("invalid playbook")

type LoadedPlaybook struct {
	Playbook Playbook
	Hash     string
	Bytes    []byte
}

// LoadPlaybook loads a YAML playbook and computes its hash from raw bytes.
func LoadPlaybook(path string) (LoadedPlaybook, error) {
	// #nosec G304 -- path comes from operator-configured playbook path.
	data, err := os.ReadFile(path)
	if err != nil {
		return LoadedPlaybook{}, err
	}
	loaded, err := ParsePlaybook(data)
	if err != nil {
		return LoadedPlaybook{}, fmt.Errorf("%s: %w", path, err)
	}
	return loaded, nil
}

func ParsePlaybook(data []byte) (LoadedPlaybook, error) {
	var p Playbook
	if err := yaml.Unmarshal(data, &p); err != nil {
		return LoadedPlaybook{}, err
	}
	if err := p.Validate(); err != nil {
		return LoadedPlaybook{}, err
	}
	return LoadedPlaybook{
		Playbook: p,
		Hash:     crypto.DigestWithPrefix(data),
		Bytes:    data,
	}, nil
}

// DefaultPlaybook is the severity ladder used when no playbook file is
// configured.
func DefaultPlaybook() LoadedPlaybook {
	loaded, err := ParsePlaybook([]byte(defaultPlaybookYAML))
	if err != nil {
		panic(fmt.Sprintf("remediation: built-in playbook: %v", err))
	}
	return loaded
}

func (p Playbook) Validate() error {
	if p.PlaybookID == "" {
		return fmt.Errorf("%w: playbook_id missing", ErrInvalidPlaybook)
	}
	if !validAction(p.Defaults.ActionType) {
		return fmt.Errorf("%w: defaults action_type %q", ErrInvalidPlaybook, p.Defaults.ActionType)
	}
	if err := validPriority(p.Defaults.Priority); err != nil {
		return fmt.Errorf("%w: defaults: %v", ErrInvalidPlaybook, err)
	}
	if err := validConfidence(p.Defaults.Confidence); err != nil {
		return fmt.Errorf("%w: defaults: %v", ErrInvalidPlaybook, err)
	}

	seen := map[string]bool{}
	for i, rule := range p.Rules {
		if rule.ID == "" {
			return fmt.Errorf("%w: rule %d has no id", ErrInvalidPlaybook, i)
		}
		if seen[rule.ID] {
			return fmt.Errorf("%w: duplicate rule id %s", ErrInvalidPlaybook, rule.ID)
		}
		seen[rule.ID] = true
		if rule.Effect.ActionType != "" && !validAction(rule.Effect.ActionType) {
			return fmt.Errorf("%w: rule %s action_type %q", ErrInvalidPlaybook, rule.ID, rule.Effect.ActionType)
		}
		if rule.Effect.Priority != nil {
			if err := validPriority(*rule.Effect.Priority); err != nil {
				return fmt.Errorf("%w: rule %s: %v", ErrInvalidPlaybook, rule.ID, err)
			}
		}
		if rule.Effect.Confidence != nil {
			if err := validConfidence(*rule.Effect.Confidence); err != nil {
				return fmt.Errorf("%w: rule %s: %v", ErrInvalidPlaybook, rule.ID, err)
			}
		}
	}
	return nil
}

func validAction(action string) bool {
	switch action {
	case ActionAutoFix, ActionManualReview, ActionEscalate, ActionNotify:
		return true
	default:
		return false
	}
}

func validPriority(p int) error {
	if p < 1 || p > 5 {
		return fmt.Errorf("priority %d outside 1..5", p)
	}
	return nil
}

func validConfidence(c float64) error {
	if math.IsNaN(c) || c < 0 || c > 1 {
		return fmt.Errorf("confidence %v outside 0..1", c)
	}
	return nil
}

const defaultPlaybookYAML = `playbook_id: complybus-default
playbook_version: "2026-01-15"
defaults:
  action_type: MANUAL_REVIEW
  priority: 3
  description: "MANUAL_REVIEW: Violation {violation_id} has no playbook rule and needs triage."
  confidence: 0.5
rules:
  - id: critical-escalate
    match:
      severity: CRITICAL
    effect:
      action_type: ESCALATE
      priority: 1
      assigned_to: compliance-lead
      description: "ESCALATE: Critical violation {violation_id} requires immediate senior review and regulatory notification."
      confidence: 0.95
  - id: high-manual-review
    match:
      severity: HIGH
    effect:
      action_type: MANUAL_REVIEW
      priority: 2
      assigned_to: compliance-team
      description: "MANUAL_REVIEW: High-severity violation {violation_id} requires expert assessment before remediation."
      confidence: 0.9
  - id: medium-auto-fix
    match:
      severity: MEDIUM
    effect:
      action_type: AUTO_FIX
      priority: 3
      description: "AUTO_FIX: Medium-severity violation {violation_id} can be resolved automatically per remediation playbook."
      confidence: 0.85
  - id: low-notify
    match:
      severity: LOW
    effect:
      action_type: NOTIFY
      priority: 4
      description: "NOTIFY: Low-severity violation {violation_id} logged and stakeholders notified for awareness."
      confidence: 0.8
`
