package harness

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rtjones/dilog/internal/engine"
)

// Result is the outcome of running one Scenario's verify pass.
type Result struct {
	Outcome   string // "success" | "error"
	ErrorKind string // populated when Outcome == "error"
	Line      int
	Err       error
}

// matches reports whether r satisfies a scenario's Expect clause.
func (r Result) matches(exp Expect) bool {
	if r.Outcome != exp.Outcome {
		return false
	}
	if exp.Outcome == "error" {
		if r.ErrorKind != exp.ErrorKind {
			return false
		}
		if exp.Line != 0 && r.Line != exp.Line {
			return false
		}
	}
	return true
}

// Run executes scenario's record pass, then its verify pass, against a
// fresh "<channel>.dilog" file inside dir, and reports whether the
// verify pass's outcome matches scenario.Expect.
func Run(scenario *Scenario, dir string) (pass bool, result Result, err error) {
	path := filepath.Join(dir, scenario.Channel+".dilog")
	_ = os.Remove(path)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	rec, err := engine.Open(path, scenario.Channel, logger)
	if err != nil {
		return false, Result{}, fmt.Errorf("dilog: opening %s for record pass: %w", path, err)
	}
	rec.BindOwner(scenario.Owner)
	if err := runSteps(rec, scenario.Record); err != nil {
		rec.Close()
		return false, Result{}, fmt.Errorf("dilog: record pass failed: %w", err)
	}
	if err := rec.Close(); err != nil {
		return false, Result{}, fmt.Errorf("dilog: closing record pass: %w", err)
	}

	ver, err := engine.Open(path, scenario.Channel, logger)
	if err != nil {
		return false, Result{}, fmt.Errorf("dilog: opening %s for verify pass: %w", path, err)
	}
	ver.BindOwner(scenario.Owner)
	defer ver.Close()

	verifyErr := runSteps(ver, scenario.Verify)
	if verifyErr == nil {
		verifyErr = ver.PendingError()
	}

	result = outcomeFromError(verifyErr)
	return result.matches(scenario.Expect), result, nil
}

func runSteps(ch *engine.Channel, steps []Step) error {
	var stack []*engine.Block
	for _, step := range steps {
		if step.Thread != "" {
			enforce := true
			if step.EnforceThread != nil {
				enforce = *step.EnforceThread
			}
			if err := ch.CheckOwner(step.Thread, enforce); err != nil {
				return err
			}
		}
		switch step.Op {
		case "block_open":
			b, err := ch.OpenBlock(step.Name)
			if err != nil {
				return err
			}
			stack = append(stack, b)
		case "message":
			if _, err := ch.Message(step.Text); err != nil {
				return err
			}
		case "block_close":
			if len(stack) == 0 {
				return fmt.Errorf("block_close with no open block")
			}
			b := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			ch.CloseBlock(b)
			if err := ch.PendingError(); err != nil {
				return err
			}
		}
	}
	return nil
}

func outcomeFromError(err error) Result {
	if err == nil {
		return Result{Outcome: "success"}
	}
	var de *engine.Error
	if errors.As(err, &de) {
		return Result{Outcome: "error", ErrorKind: string(de.Kind), Line: de.Line, Err: err}
	}
	return Result{Outcome: "error", ErrorKind: "unknown", Err: err}
}
