package conformance

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSuite(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func TestConformance(t *testing.T) {
	tests, err := LoadDir(TestPath)
	if err != nil {
		t.Fatalf("Failed to load tests: %v", err)
	}
	if len(tests) == 0 {
		t.Fatal("No tests loaded")
	}

	runner := NewRunner()
	results := runner.RunAll(tests)

	for _, result := range results {
		result := result
		t.Run(result.Test.File+"/"+result.Test.Test.Name, func(t *testing.T) {
			if result.Skipped {
				t.Skipf("Skipped: %s", result.SkipReason)
			}
			if !result.Passed {
				t.Errorf("%v", result.Error)
			}
		})
	}

	t.Logf("\n=== Summary ===\n%s", FormatStats(ComputeStats(results)))
}

func TestLoaderRejectsAmbiguousExpectation(t *testing.T) {
	dir := t.TempDir()
	writeSuite(t, dir, "bad.yaml", `
name: bad
tests:
  - name: both
    source: "println(1);"
    expect:
      output: "1\n"
      error: TypeMismatch
`)
	if _, err := LoadDir(dir); err == nil {
		t.Fatal("expected an error for a test expecting both output and error")
	}
}

func TestLoaderRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	writeSuite(t, dir, "typo.yaml", `
name: typo
tests:
  - name: t
    source: "println(1);"
    expect:
      outptu: "1\n"
`)
	if _, err := LoadDir(dir); err == nil {
		t.Fatal("expected an error for an unknown field")
	}
}
