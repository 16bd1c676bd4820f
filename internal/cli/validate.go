package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rtjones/dilog/internal/engine"
	"github.com/rtjones/dilog/internal/schema"
)

// ValidationResult is the JSON payload for "dilogctl validate".
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// NewValidateCommand builds "dilogctl validate <channel>.dilog [--schema file.cue]".
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var schemaPath string

	cmd := &cobra.Command{
		Use:   "validate <channel>.dilog",
		Short: "Check a trace file's structural well-formedness",
		Long: `Check that a trace file is well-formed: every block-open is balanced by a
matching close, frame syntax is followed throughout, and the file does not
end mid-block.

With --schema, additionally check the parsed block tree's shape (block
names and nesting) against a CUE schema. This is strictly an optional
convenience on top of structural validation; core Message/Block/CurrentLine
calls never consult a schema.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], schemaPath, cmd)
		},
	}

	cmd.Flags().StringVar(&schemaPath, "schema", "", "optional CUE schema file to check the trace's block-tree shape against")
	return cmd
}

func runValidate(opts *RootOptions, path, schemaPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	f, err := os.Open(path)
	if err != nil {
		_ = formatter.Error("E005", "cannot open trace file", err.Error())
		return WrapExitError(ExitCommandError, "cannot open trace file", err)
	}
	defer f.Close()

	channelName := strings.TrimSuffix(filepath.Base(path), ".dilog")
	formatter.VerboseLog("parsing %s as channel %q", path, channelName)

	tree, err := engine.ParseTree(f, channelName)
	if err != nil {
		return outputValidationFailure(formatter, []string{err.Error()})
	}

	if schemaPath == "" {
		return outputValidationSuccess(formatter)
	}

	formatter.VerboseLog("checking block-tree shape against schema %s", schemaPath)
	s, err := schema.Load(schemaPath)
	if err != nil {
		_ = formatter.Error("E007", "cannot load schema", err.Error())
		return WrapExitError(ExitCommandError, "cannot load schema", err)
	}

	violations := s.Validate(tree)
	if len(violations) == 0 {
		return outputValidationSuccess(formatter)
	}
	msgs := make([]string, len(violations))
	for i, v := range violations {
		msgs[i] = v.String()
	}
	return outputValidationFailure(formatter, msgs)
}

func outputValidationSuccess(formatter *OutputFormatter) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true})
	}
	return formatter.Success("trace file is well-formed")
}

func outputValidationFailure(formatter *OutputFormatter, errs []string) error {
	if formatter.Format == "json" {
		if err := formatter.Success(ValidationResult{Valid: false, Errors: errs}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "validation failed")
	}
	for _, e := range errs {
		_ = formatter.Error("E006", e, nil)
	}
	return NewExitError(ExitFailure, "validation failed")
}
