package diagnostic

// TestStatus is the normalized outcome of one test.
type TestStatus string

const (
	TestPassed  TestStatus = "passed"
	TestWarning TestStatus = "warning"
	TestFailed  TestStatus = "failed"
	TestNotRun  TestStatus = "notrun"
)

// TestOutcome is one test result with the diagnostics found in its output.
type TestOutcome struct {
	Name        string       `json:"name"`
	Status      TestStatus   `json:"status"`
	Duration    float64      `json:"time"`
	Output      string       `json:"output"`
	Diagnostics []Diagnostic `json:"parsed_errors"`
	FailureType string       `json:"failure_type"`
}

// Passed is true for passed and warning outcomes.
func (t TestOutcome) Passed() bool {
	return t.Status == TestPassed || t.Status == TestWarning
}

// TestAnnotation is a free-text note a test emitted through an in-band
// marker, independent of its status.
type TestAnnotation struct {
	TestName string `json:"name"`
	Message  string `json:"message"`
}

// TestCounts tallies outcomes by status.
type TestCounts struct {
	Total   int
	Passed  int
	Warning int
	Failed  int
	NotRun  int
}

// CountTests tallies outcomes. A warning counts as both Passed and Warning.
func CountTests(outcomes []TestOutcome) TestCounts {
	var c TestCounts
	for _, o := range outcomes {
		c.Total++
		switch o.Status {
		case TestPassed:
			c.Passed++
		case TestWarning:
			c.Passed++
			c.Warning++
		case TestNotRun:
			c.NotRun++
		default:
			c.Failed++
		}
	}
	return c
}
