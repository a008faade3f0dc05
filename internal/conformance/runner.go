package conformance

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"computeduck/internal/config"
	"computeduck/internal/driver"
	"computeduck/internal/ir"
	"computeduck/internal/runtime"
	"computeduck/internal/vm"
)

// TestResult represents the outcome of running a single test
type TestResult struct {
	Test       LoadedTest
	Passed     bool
	Skipped    bool
	SkipReason string
	Output     string
	Error      error
}

// Runner executes conformance tests, each on a fresh driver.
type Runner struct {
	cfg config.Config
}

func NewRunner() *Runner {
	return &Runner{cfg: config.Default()}
}

// ErrorKind names the kind of a pipeline error the way suites spell it.
func ErrorKind(err error) string {
	var syn *driver.SyntaxError
	var cerr *ir.CompileError
	var rerr *vm.RuntimeError
	switch {
	case errors.As(err, &syn):
		return "SyntaxError"
	case errors.As(err, &cerr):
		return cerr.Kind.String()
	case errors.As(err, &rerr):
		return rerr.Kind.String()
	}
	return "Error"
}

func (r *Runner) Run(lt LoadedTest) TestResult {
	res := TestResult{Test: lt}
	if skip, reason := lt.Test.IsSkipped(); skip {
		res.Skipped = true
		res.SkipReason = reason
		return res
	}

	out := &bytes.Buffer{}
	env := runtime.NewEnv(runtime.NewWriterIO(out, strings.NewReader(lt.Test.Input)))
	var opts []driver.Option
	if lt.Test.NoFold {
		opts = append(opts, driver.WithoutFolding())
	}
	d := driver.New(r.cfg, env, opts...)

	err := d.RunSource(lt.Test.Name+".cd", lt.Test.Source)
	res.Output = out.String()

	want := lt.Test.Expect
	switch {
	case want.Error != "":
		if err == nil {
			res.Error = fmt.Errorf("expected %s, run succeeded with output %q", want.Error, res.Output)
			return res
		}
		if got := ErrorKind(err); got != want.Error {
			res.Error = fmt.Errorf("expected %s, got %s: %v", want.Error, got, err)
			return res
		}
	case err != nil:
		res.Error = fmt.Errorf("unexpected error: %v", err)
		return res
	case res.Output != want.Output:
		res.Error = fmt.Errorf("output mismatch:\nwant %q\ngot  %q", want.Output, res.Output)
		return res
	}
	res.Passed = true
	return res
}

func (r *Runner) RunAll(tests []LoadedTest) []TestResult {
	results := make([]TestResult, len(tests))
	for i, lt := range tests {
		results[i] = r.Run(lt)
	}
	return results
}

type Stats struct {
	Total, Passed, Failed, Skipped int
}

func ComputeStats(results []TestResult) Stats {
	var s Stats
	for _, r := range results {
		s.Total++
		switch {
		case r.Skipped:
			s.Skipped++
		case r.Passed:
			s.Passed++
		default:
			s.Failed++
		}
	}
	return s
}

func FormatStats(s Stats) string {
	return fmt.Sprintf("total %d, passed %d, failed %d, skipped %d", s.Total, s.Passed, s.Failed, s.Skipped)
}
