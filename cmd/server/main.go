package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "livebox",
	Short: "Live sandboxed preview engine for HTML, CSS and JavaScript",
	Long: `livebox assembles markup, style and script into one document, runs it in a
sandboxed JavaScript frame and relays the document's console back to the editor.`,
	RunE:          runServe, // Default to serving.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, runCmd, templatesCmd, shareCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
