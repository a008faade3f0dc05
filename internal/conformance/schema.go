package conformance

// TestSuite represents a complete YAML test file
type TestSuite struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Tests       []TestCase `yaml:"tests"`
}

// TestCase represents a single program run through the whole pipeline
type TestCase struct {
	Name   string      `yaml:"name"`
	Skip   string      `yaml:"skip,omitempty"` // reason
	Source string      `yaml:"source"`
	Input  string      `yaml:"input,omitempty"` // stdin lines for input()
	NoFold bool        `yaml:"no_fold,omitempty"`
	Expect Expectation `yaml:"expect"`
}

// Expectation defines what a run must produce. Output is compared exactly;
// Error names the error kind, e.g. ArityMismatch or UndefinedVariable.
type Expectation struct {
	Output string `yaml:"output,omitempty"`
	Error  string `yaml:"error,omitempty"`
}

// IsSkipped returns true if this test should be skipped
func (tc *TestCase) IsSkipped() (bool, string) {
	if tc.Skip != "" {
		return true, tc.Skip
	}
	return false, ""
}
