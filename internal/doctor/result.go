package doctor

// Severity ranks a check result. A higher value is worse.
type Severity int

const (
	// SeverityPass means the check found nothing to report.
	SeverityPass Severity = iota

	// SeverityInfo is output worth showing that needs no action.
	SeverityInfo

	// SeverityWarning is a problem that still lets saves load and write.
	SeverityWarning

	// SeverityError is a problem that stops saves from loading or writing.
	SeverityError
)

var severityNames = [...]string{"pass", "info", "warning", "error"}

func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return "unknown"
	}
	return severityNames[s]
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// NeedsAttention reports whether s is a warning or an error.
func (s Severity) NeedsAttention() bool {
	return s >= SeverityWarning
}

// CheckResult is the outcome of one check.
type CheckResult struct {
	Name     string   `json:"name" yaml:"name"`
	Category string   `json:"category" yaml:"category"`
	Status   Severity `json:"status" yaml:"status"`
	Message  string   `json:"message" yaml:"message"`

	// Details holds check specific values: paths, save roots, the
	// identifiers of incompatible slots.
	Details map[string]any `json:"details,omitempty" yaml:"details,omitempty"`

	Fixable bool   `json:"fixable,omitempty" yaml:"fixable,omitempty"`
	FixHint string `json:"fix_hint,omitempty" yaml:"fix_hint,omitempty"`
}

// Summary counts results by severity.
type Summary struct {
	Passed   int `json:"passed" yaml:"passed"`
	Info     int `json:"info" yaml:"info"`
	Warnings int `json:"warnings" yaml:"warnings"`
	Errors   int `json:"errors" yaml:"errors"`
}

func (s *Summary) add(sev Severity) {
	switch sev {
	case SeverityPass:
		s.Passed++
	case SeverityInfo:
		s.Info++
	case SeverityWarning:
		s.Warnings++
	case SeverityError:
		s.Errors++
	}
}

// Worst returns the most severe status counted.
func (s Summary) Worst() Severity {
	switch {
	case s.Errors > 0:
		return SeverityError
	case s.Warnings > 0:
		return SeverityWarning
	case s.Info > 0:
		return SeverityInfo
	}
	return SeverityPass
}
