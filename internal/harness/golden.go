package harness

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/rtjones/dilog/internal/engine"
)

// AssertGolden runs scenario (via Run) and compares two artifacts
// against golden fixtures in testdata/golden/<scenario.Name>.*:
// the recorded trace file's exact bytes, and — only when the verify
// pass failed with a SearchExhausted-backed error — the rendered
// diagnostic tree. Regenerate fixtures with `go test ./internal/harness -update`.
func AssertGolden(t *testing.T, scenario *Scenario, dir string) {
	t.Helper()

	pass, result, err := Run(scenario, dir)
	if err != nil {
		t.Fatalf("dilog: running scenario %s: %v", scenario.Name, err)
	}
	if !pass {
		t.Fatalf("dilog: scenario %s: verify outcome %+v did not match expectation %+v", scenario.Name, result, scenario.Expect)
	}

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"))

	traceBytes, err := os.ReadFile(filepath.Join(dir, scenario.Channel+".dilog"))
	if err != nil {
		t.Fatalf("dilog: reading recorded trace: %v", err)
	}
	g.Assert(t, scenario.Name+".trace", traceBytes)

	if diag := diagnosticOf(result.Err); diag != "" {
		g.Assert(t, scenario.Name+".diagnostic", []byte(diag))
	}
}

// diagnosticOf walks err's cause chain looking for the SearchExhausted
// node carrying the rendered diagnostic tree — it is always the Cause
// of a MessageMismatch or EndOfBlockViolation, never the error's own
// top-level Diagnostic field.
func diagnosticOf(err error) string {
	for e := err; e != nil; e = errors.Unwrap(e) {
		de, ok := e.(*engine.Error)
		if !ok {
			continue
		}
		if de.Diagnostic != "" {
			return de.Diagnostic
		}
	}
	return ""
}
