package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the chatbot-be command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chatbot-be",
		Short:         "Document-grounded chatbot backend",
		Long:          "Backend server that orchestrates LLM tool use over a document retrieval backend and streams grounded answers to embedded chat widgets.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd())
	return root
}

// Execute runs the CLI and returns its exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
