package parser_test

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	_ "github.com/ha1tch/partiqlparser/lexer"
	. "github.com/ha1tch/partiqlparser/parser"
)

// TestCorpusIntegration runs the parser against every PartiQL sample file
// in the testdata directory. This is an integration test that verifies
// the parser handles realistic query shapes end to end, through
// ParseExprNode rather than any single sub-parser.
func TestCorpusIntegration(t *testing.T) {
	corpusDir := "../testdata"

	files, err := filepath.Glob(filepath.Join(corpusDir, "*.sql"))
	if err != nil {
		t.Fatalf("failed to glob corpus directory: %v", err)
	}

	if len(files) == 0 {
		t.Skip("no corpus files found in testdata/")
	}

	sort.Strings(files)

	var passed, failed int
	var failures []string

	for _, file := range files {
		name := filepath.Base(file)

		content, err := os.ReadFile(file)
		if err != nil {
			t.Errorf("failed to read %s: %v", name, err)
			failed++
			continue
		}

		if _, err := ParseExprNode(string(content)); err != nil {
			failed++
			failures = append(failures, name+": "+err.Error())
		} else {
			passed++
		}
	}

	total := passed + failed
	passRate := float64(passed) / float64(total) * 100

	t.Logf("Corpus integration results:")
	t.Logf("  Passed: %d/%d (%.1f%%)", passed, total, passRate)
	t.Logf("  Failed: %d", failed)

	if len(failures) > 0 {
		t.Logf("  Failures:")
		for _, f := range failures {
			t.Logf("    - %s", f)
		}
	}

	if passRate < 100.0 {
		t.Errorf("pass rate %.1f%% is below the 100%% threshold for the curated corpus", passRate)
	}
}

// TestCorpusSamples runs individual subtests per corpus file, and also
// checks that each one round-trips through the canonical s-expression
// renderer without panicking. Run a single sample with:
//
//	go test -run TestCorpusSamples/001_basic_select
func TestCorpusSamples(t *testing.T) {
	corpusDir := "../testdata"

	files, err := filepath.Glob(filepath.Join(corpusDir, "*.sql"))
	if err != nil {
		t.Fatalf("failed to glob corpus directory: %v", err)
	}

	if len(files) == 0 {
		t.Skip("no corpus files found in testdata/")
	}

	sort.Strings(files)

	for _, file := range files {
		name := filepath.Base(file)
		testName := strings.TrimSuffix(name, ".sql")

		t.Run(testName, func(t *testing.T) {
			content, err := os.ReadFile(file)
			if err != nil {
				t.Fatalf("failed to read file: %v", err)
			}

			node, err := ParseExprNode(string(content))
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}
			if node == nil {
				t.Fatal("parsed a nil node")
			}

			rendered, err := Parse(string(content))
			if err != nil {
				t.Fatalf("render error: %v", err)
			}
			if rendered == "" {
				t.Error("rendered an empty s-expression")
			}
		})
	}
}
