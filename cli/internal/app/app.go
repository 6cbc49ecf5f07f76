// Package app builds the formeval command tree: eval, validate, compile,
// watch, and cache stats, each a thin cobra wrapper around
// runtime/orchestrator and core/store. Grounded on the teacher's own
// cli/main.go cobra root-command wiring (persistent flags, RunE returning
// errors rather than calling os.Exit mid-function).
package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opal-lang/formeval/core/store"
)

// sharedStore is the process-wide compiled-expression table every
// subcommand compiles against, so within one `formeval` invocation
// expression sites with identical logic share a single compiled entry.
var sharedStore = store.New()

// NewRootCommand builds the formeval cobra command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "formeval",
		Short:         "Evaluate JSON-Logic-dialect declarative form schemas",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(newEvalCommand())
	root.AddCommand(newValidateCommand())
	root.AddCommand(newCompileCommand())
	root.AddCommand(newWatchCommand())
	root.AddCommand(newCacheCommand())
	return root
}

// Execute runs the command tree and maps a returned error to a
// process exit, matching the teacher's cli/main.go pattern of returning
// errors from RunE rather than calling os.Exit mid-command.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "formeval:", err)
		return 1
	}
	return 0
}
