package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rtjones/dilog/internal/harness"
)

// ScenarioResult is the JSON payload for "dilogctl scenario".
type ScenarioResult struct {
	Name      string `json:"name"`
	Passed    bool   `json:"passed"`
	Outcome   string `json:"outcome"`
	ErrorKind string `json:"error_kind,omitempty"`
	Line      int    `json:"line,omitempty"`
}

// NewScenarioCommand builds "dilogctl scenario <scenario.yaml>".
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "scenario <scenario.yaml>",
		Short: "Run a record/verify scenario file and report pass/fail",
		Long: `Run a YAML-described scenario end to end: a record pass writes a fresh
trace file, then a verify pass replays a second sequence of calls against it,
and the command reports whether the verify pass's outcome matched what the
scenario declared under "expect".`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(rootOpts, args[0], dir, cmd)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "directory to write the scenario's trace file into (default: a temp directory)")
	return cmd
}

func runScenario(opts *RootOptions, path, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	sc, err := harness.LoadScenario(path)
	if err != nil {
		_ = formatter.Error("E005", "cannot load scenario", err.Error())
		return WrapExitError(ExitCommandError, "cannot load scenario", err)
	}

	if dir == "" {
		tmp, mkErr := os.MkdirTemp("", "dilog-scenario-*")
		if mkErr != nil {
			return WrapExitError(ExitCommandError, "cannot create scratch directory", mkErr)
		}
		defer os.RemoveAll(tmp)
		dir = tmp
	}

	formatter.VerboseLog("running scenario %q in %s", sc.Name, dir)
	pass, result, err := harness.Run(sc, dir)
	if err != nil {
		_ = formatter.Error("E008", "scenario execution error", err.Error())
		return WrapExitError(ExitCommandError, "scenario execution error", err)
	}

	out := ScenarioResult{Name: sc.Name, Passed: pass, Outcome: result.Outcome, ErrorKind: result.ErrorKind, Line: result.Line}
	if !pass {
		if err := formatter.Success(out); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "scenario did not match expected outcome")
	}
	return formatter.Success(out)
}
