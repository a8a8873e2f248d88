package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"chunk_visualizer/internal/render"
)

var errQuit = errors.New("quit")

func (a *App) Run(ctx context.Context) error {
	a.log.Info("session started", "chunker", a.cfg.ChunkerURL)
	fmt.Fprint(a.out, render.Status(a.ctrl.Snapshot()))
	fmt.Fprintln(a.out, "Type 'help' for commands. Ctrl+C to exit.")

	scanner := bufio.NewScanner(a.in)

	// long paths and queries
	const maxLineSize = 1024 * 1024
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, maxLineSize)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutting down session")
			return nil
		default:
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("stdin error: %w", err)
				}
				a.log.Debug("stdin closed")
				return nil
			}

			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			if err := a.handle(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				fmt.Fprintf(a.out, "❌ %v\n", err)
			}
		}
	}
}

// RunOptions drive a single non-interactive run.
type RunOptions struct {
	Path     string
	Strategy string
	// Settings are "key=value" parameter assignments.
	Settings []string
	Output   string
}

// RunOnce selects, uploads and chunks one file, prints the result and
// optionally writes the report.
func (a *App) RunOnce(ctx context.Context, opts RunOptions) error {
	if err := a.ctrl.Initialize(ctx); err != nil {
		return err
	}
	if opts.Strategy != "" {
		if err := a.ctrl.SelectStrategy(opts.Strategy); err != nil {
			return err
		}
	}
	for _, s := range opts.Settings {
		key, value, ok := strings.Cut(s, "=")
		if !ok {
			return fmt.Errorf("invalid setting %q, expected key=value", s)
		}
		if err := a.ctrl.Configure(strings.TrimSpace(key), value); err != nil {
			return err
		}
	}

	if err := a.selectFile(opts.Path); err != nil {
		return err
	}
	if err := a.ctrl.Upload(ctx); err != nil {
		return err
	}
	if err := a.chunk(ctx); err != nil {
		return err
	}

	output := opts.Output
	if output == "" {
		output = a.cfg.Output
	}
	if output != "" {
		return a.writeReport(output)
	}
	return nil
}
