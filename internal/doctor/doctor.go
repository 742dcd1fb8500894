package doctor

import "time"

// Check is one diagnostic.
type Check interface {
	// Name identifies the check in reports, e.g. "save-directory".
	Name() string

	// Category groups checks in reports: "config", "saves" or "filesystem".
	Category() string

	Run() *CheckResult
}

// Target names the save directory a run diagnoses. It is empty when no
// platform could be opened.
type Target struct {
	Platform string `json:"platform,omitempty" yaml:"platform,omitempty"`
	Dir      string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// Runner runs checks in the order they were added.
type Runner struct {
	checks []Check
	target Target
	now    func() time.Time
}

// NewRunner returns a runner with no checks.
func NewRunner() *Runner {
	return &Runner{now: time.Now}
}

// AddCheck appends c to the run.
func (r *Runner) AddCheck(c Check) {
	r.checks = append(r.checks, c)
}

// SetTarget records the save directory being diagnosed in every report.
func (r *Runner) SetTarget(t Target) {
	r.target = t
}

// Checks returns the registered checks in order.
func (r *Runner) Checks() []Check {
	return r.checks
}

// Run runs every check once.
func (r *Runner) Run() *Report {
	report := &Report{
		Timestamp: r.now().UTC(),
		Target:    r.target,
		Results:   make([]*CheckResult, 0, len(r.checks)),
	}
	for _, c := range r.checks {
		result := c.Run()
		report.Results = append(report.Results, result)
		report.Summary.add(result.Status)
	}
	return report
}

// Fix applies the fixes of every check that has one pending. Run must have
// been called first.
func (r *Runner) Fix() []FixResult {
	var fixes []FixResult
	for _, c := range r.checks {
		if f, ok := c.(Fixer); ok && f.CanFix() {
			fixes = append(fixes, f.Fix()...)
		}
	}
	return fixes
}

// Report is the outcome of one run.
type Report struct {
	Timestamp time.Time      `json:"timestamp" yaml:"timestamp"`
	Target    Target         `json:"target" yaml:"target"`
	Results   []*CheckResult `json:"results" yaml:"results"`
	Summary   Summary        `json:"summary" yaml:"summary"`
}

// HasErrors reports whether any check failed with SeverityError.
func (r *Report) HasErrors() bool {
	return r.Summary.Errors > 0
}

// HasWarnings reports whether any check raised SeverityWarning.
func (r *Report) HasWarnings() bool {
	return r.Summary.Warnings > 0
}

// Problems returns the results that need attention, in run order.
func (r *Report) Problems() []*CheckResult {
	var out []*CheckResult
	for _, res := range r.Results {
		if res.Status.NeedsAttention() {
			out = append(out, res)
		}
	}
	return out
}
