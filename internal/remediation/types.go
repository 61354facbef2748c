package remediation

// Playbook maps violation events onto remediation actions. Rules are
// checked in order and the first match wins; unmatched events get the
// defaults.
type Playbook struct {
	PlaybookID      string           `yaml:"playbook_id"`
	PlaybookVersion string           `yaml:"playbook_version"`
	Defaults        PlaybookDefaults `yaml:"defaults"`
	Rules           []PlaybookRule   `yaml:"rules"`
}

type PlaybookDefaults struct {
	ActionType  string  `yaml:"action_type"`
	Priority    int     `yaml:"priority"`
	AssignedTo  string  `yaml:"assigned_to"`
	Description string  `yaml:"description"`
	Confidence  float64 `yaml:"confidence"`
}

type PlaybookRule struct {
	ID     string         `yaml:"id"`
	Match  PlaybookMatch  `yaml:"match"`
	Effect PlaybookEffect `yaml:"effect"`
}

// PlaybookMatch fields are ANDed; empty fields match anything.
type PlaybookMatch struct {
	EventType string `yaml:"event_type"`
	Severity  string `yaml:"severity"`
	Rule      string `yaml:"rule"`
}

type PlaybookEffect struct {
	ActionType  string   `yaml:"action_type"`
	Priority    *int     `yaml:"priority"`
	AssignedTo  string   `yaml:"assigned_to"`
	Description string   `yaml:"description"`
	Confidence  *float64 `yaml:"confidence"`
}

// Action types.
const (
	ActionAutoFix      = "AUTO_FIX"
	ActionManualReview = "MANUAL_REVIEW"
	ActionEscalate     = "ESCALATE"
	ActionNotify       = "NOTIFY"
)
