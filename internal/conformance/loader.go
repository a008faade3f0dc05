package conformance

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// TestPath is the suite directory relative to this package.
const TestPath = "testdata"

// LoadedTest represents a test with its source file path
type LoadedTest struct {
	File  string
	Suite string
	Test  TestCase
}

// LoadDir loads every .yaml suite under dir in file name order.
func LoadDir(dir string) ([]LoadedTest, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".yaml" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var loaded []LoadedTest
	for _, path := range paths {
		suite, err := loadTestFile(path)
		if err != nil {
			return nil, err
		}
		rel, _ := filepath.Rel(dir, path)
		for _, tc := range suite.Tests {
			loaded = append(loaded, LoadedTest{File: rel, Suite: suite.Name, Test: tc})
		}
	}
	return loaded, nil
}

// loadTestFile parses a single YAML file. Unknown fields are rejected so
// typos in expectations do not pass silently.
func loadTestFile(path string) (*TestSuite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var suite TestSuite
	if err := dec.Decode(&suite); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if suite.Name == "" {
		return nil, fmt.Errorf("%s: suite has no name", path)
	}
	for i, tc := range suite.Tests {
		if tc.Name == "" {
			return nil, fmt.Errorf("%s: test %d has no name", path, i)
		}
		if (tc.Expect.Output == "") == (tc.Expect.Error == "") && tc.Skip == "" {
			return nil, fmt.Errorf("%s: test %q must expect exactly one of output or error", path, tc.Name)
		}
	}
	return &suite, nil
}
