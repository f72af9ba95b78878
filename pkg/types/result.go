package types

// CheckResult is the outcome of checking one text.
// The zero value is the EMPTY result: no text, no alerts, no failure.
type CheckResult struct {
	Text   string
	Alerts []Alert
	Log    string // Raw service messages, kept for diagnostics
	Err    error  // Set when the check failed rather than completed
}

// EMPTY denotes "no result / not found"
var EMPTY = CheckResult{}

// FailedResult builds a result that records why the check of text failed
func FailedResult(text string, err error) CheckResult {
	return CheckResult{Text: text, Err: err}
}

// IsEmpty reports whether the result carries neither text nor alerts
func (r CheckResult) IsEmpty() bool {
	return r.Text == "" && len(r.Alerts) == 0 && r.Log == "" && r.Err == nil
}

// Failed reports whether the check ended with an error
func (r CheckResult) Failed() bool {
	return r.Err != nil
}

// Copy returns a deep copy so callers cannot mutate shared results
func (r CheckResult) Copy() CheckResult {
	if r.Alerts == nil {
		return r
	}
	alerts := make([]Alert, len(r.Alerts))
	for i, a := range r.Alerts {
		alerts[i] = a.WithRange(a.Range)
	}
	r.Alerts = alerts
	return r
}
