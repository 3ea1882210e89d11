// Package main implements the overseer-dash interactive dashboard.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

func main() {
	var opts fetchOpts
	flag.StringVar(&opts.repo, "repo", "", "git repository root or child path")
	flag.StringVar(&opts.stateDir, "state-dir", "", "state directory override")
	flag.StringVar(&opts.config, "config", "", "config path override")
	flag.Parse()

	// Non-interactive consumers get one JSON snapshot instead of a TUI.
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		if err := robotMode(os.Stdout, opts); err != nil {
			fmt.Fprintf(os.Stderr, "overseer-dash: %v\n", err)
			os.Exit(1)
		}
		return
	}

	paths, err := fetchPaths(context.Background(), opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "overseer-dash: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(newModel(opts, paths), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "overseer-dash: %v\n", err)
		os.Exit(1)
	}
}

// robotMode prints one status snapshot as JSON.
func robotMode(w *os.File, opts fetchOpts) error {
	report, err := fetchStatus(context.Background(), opts)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}
