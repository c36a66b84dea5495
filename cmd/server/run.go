package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/livebox/internal/domain/console"
	"github.com/GriffinCanCode/livebox/internal/domain/template"
	"github.com/GriffinCanCode/livebox/internal/engine"
	"github.com/GriffinCanCode/livebox/internal/infrastructure/logging"
	"github.com/GriffinCanCode/livebox/internal/sandbox"
	"github.com/GriffinCanCode/livebox/internal/shared/types"
)

var (
	runMarkup   string
	runStyle    string
	runScript   string
	runTemplate string
	runWait     time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one bundle headlessly and print its console",
	Long: `Assemble the given fragments into a document, run it in the sandbox and
print every console event it produces to stdout.

Examples:
  livebox run --markup index.html --script app.js
  livebox run --template calculator --wait 2s

Exit codes:
  0  the document logged no errors
  1  the document logged at least one error, or the run failed`,
	RunE: runBundle,
}

func init() {
	runCmd.Flags().StringVar(&runMarkup, "markup", "", "HTML file (- for stdin)")
	runCmd.Flags().StringVar(&runStyle, "style", "", "CSS file")
	runCmd.Flags().StringVar(&runScript, "script", "", "JavaScript file")
	runCmd.Flags().StringVar(&runTemplate, "template", "", "start from a built-in template")
	runCmd.Flags().DurationVar(&runWait, "wait", time.Second, "how long to let timers run")
}

func readFragment(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

func runBundle(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var bundle types.SourceBundle
	if runTemplate != "" {
		t, err := template.Builtin().Get(runTemplate)
		if err != nil {
			return err
		}
		bundle = t.Bundle()
	}
	for f, path := range map[types.Fragment]string{
		types.FragmentMarkup: runMarkup,
		types.FragmentStyle:  runStyle,
		types.FragmentScript: runScript,
	} {
		if path == "" {
			continue
		}
		text, err := readFragment(path)
		if err != nil {
			return err
		}
		bundle = bundle.With(f, text)
	}

	logger, err := logging.New(logging.Config{Level: "warn"})
	if err != nil {
		return err
	}
	defer logger.Sync()

	frameCfg, err := cfg.Sandbox.Frame()
	if err != nil {
		return err
	}
	frameCfg.PoolSize = 1
	frame, err := sandbox.NewFrame(frameCfg, logger.Component("sandbox"))
	if err != nil {
		return err
	}
	defer frame.Close()

	log := console.NewLog(cfg.Sandbox.ConsoleCapacity)
	eng := engine.New(frame, log, engine.Options{}, logger.Component("engine"))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	eng.Submit(bundle)

	select {
	case <-time.After(runWait):
	case <-ctx.Done():
	}
	cancel()
	if err := <-done; err != nil {
		return err
	}

	failed := false
	out := cmd.OutOrStdout()
	for _, e := range log.Entries() {
		fmt.Fprintf(out, "[%s] %s\n", e.Level, e.Message)
		if e.Level == types.LevelError {
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("document logged errors")
	}
	return nil
}
