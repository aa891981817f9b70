package eval

// #region eval-config
// EvalConfig holds limits for envelope validation.
type EvalConfig struct {
	MaxSources            int  // reject if more sources than this are shown
	RequireSourcesOnAllow bool // fail, rather than warn, when an ALLOW answer cites nothing
}

// DefaultEvalConfig returns the production limits.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		MaxSources:            5,
		RequireSourcesOnAllow: false,
	}
}

// #endregion eval-config

// #region eval-check
// EvalCheck captures a single validation check result.
type EvalCheck struct {
	Name   string `json:"name"`
	Pass   bool   `json:"pass"`
	Detail string `json:"detail,omitempty"`
}

// #endregion eval-check

// #region eval-result
// EvalResult is the output of envelope validation.
type EvalResult struct {
	Passed bool        `json:"passed"`
	Checks []EvalCheck `json:"checks"`
	Reason string      `json:"reason"`
}

// Failed returns the names of the checks that did not pass, informational
// ones included.
func (r EvalResult) Failed() []string {
	var names []string
	for _, c := range r.Checks {
		if !c.Pass {
			names = append(names, c.Name)
		}
	}
	return names
}

// #endregion eval-result
