package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rtjones/dilog/internal/engine"
)

// DumpNode is the JSON-serializable shape of engine.TraceNode.
type DumpNode struct {
	Name     string     `json:"name"`
	Messages []string   `json:"messages,omitempty"`
	Children []DumpNode `json:"children,omitempty"`
}

// NewDumpCommand builds "dilogctl dump <channel>.dilog".
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dump <channel>.dilog",
		Short:         "Pretty-print a trace file's block tree",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runDump(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	f, err := os.Open(path)
	if err != nil {
		_ = formatter.Error("E005", "cannot open trace file", err.Error())
		return WrapExitError(ExitCommandError, "cannot open trace file", err)
	}
	defer f.Close()

	channelName := strings.TrimSuffix(filepath.Base(path), ".dilog")
	tree, err := engine.ParseTree(f, channelName)
	if err != nil {
		_ = formatter.Error("E006", "malformed trace file", err.Error())
		return WrapExitError(ExitCommandError, "malformed trace file", err)
	}

	if opts.Format == "json" {
		return formatter.Success(toDumpNode(tree))
	}

	var b strings.Builder
	writeDumpText(&b, tree, 0)
	return formatter.Success(strings.TrimRight(b.String(), "\n"))
}

func toDumpNode(n *engine.TraceNode) DumpNode {
	d := DumpNode{Name: n.Name, Messages: n.Messages}
	for _, c := range n.Children {
		d.Children = append(d.Children, toDumpNode(c))
	}
	return d
}

func writeDumpText(b *strings.Builder, n *engine.TraceNode, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%s%s\n", indent, n.Name)
	for _, m := range n.Messages {
		fmt.Fprintf(b, "%s  - %q\n", indent, m)
	}
	for _, c := range n.Children {
		writeDumpText(b, c, depth+1)
	}
}
