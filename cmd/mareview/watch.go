package main

import (
	"bufio"
	"context"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/mare-crater-map/internal/adapter/fswatch"
)

var (
	watchValue int
	watchDir   bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Drive the map interactively from stdin",
	Long: `Loads the dataset, renders the initial frame, then reads one command per line:

  <n>           move the control to n (debounced)
  select <key>  open the region panel
  clear         close the region panel
  reload        reload every input file

With --watch-dir (or WATCH_DATA_DIR=true) the data directory is watched and a
change reloads everything. Layers are written as JSON lines on stdout.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(cfg, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.load(ctx); err != nil {
			return err
		}
		if _, err := a.controller.Recompute(ctx, watchValue); err != nil {
			return err
		}

		var reloads <-chan fswatch.Reload
		if watchDir || cfg.WatchDataDir {
			w, err := fswatch.NewWatcher(cfg.DataDir, 0, logger)
			if err != nil {
				return err
			}
			if err := w.Start(); err != nil {
				return err
			}
			defer w.Stop()
			reloads = w.Reloads
			logger.Info("watching data directory", "dir", cfg.DataDir)
		}

		lines := scanLines(cmd.InOrStdin())
		for {
			select {
			case <-ctx.Done():
				logger.Info("shutting down")
				return flushPending(a)

			case line, ok := <-lines:
				if !ok {
					if reloads == nil {
						return flushPending(a)
					}
					lines = nil
					continue
				}
				if err := handleCommand(ctx, a, line); err != nil {
					logger.Warn("command failed", "command", line, "error", err)
				}

			case v := <-a.controller.Fired():
				if _, err := a.controller.Recompute(ctx, v); err != nil {
					logger.Error("recompute failed", "value", v, "error", err)
				}

			case r := <-reloads:
				logger.Info("data directory changed", "files", r.Files)
				reload(ctx, a)
			}
		}
	},
}

func init() {
	watchCmd.Flags().IntVar(&watchValue, "value", 0, "initial control value")
	watchCmd.Flags().BoolVar(&watchDir, "watch-dir", false, "reload when files in DATA_DIR change")
	rootCmd.AddCommand(watchCmd)
}

func scanLines(r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" {
				ch <- line
			}
		}
	}()
	return ch
}

func handleCommand(ctx context.Context, a *app, line string) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case "select":
		if len(fields) != 2 {
			return eris.New("usage: select <key>")
		}
		_, err := a.controller.SelectRegion(ctx, fields[1])
		return err
	case "clear":
		a.controller.ClearRegion()
		return nil
	case "reload":
		reload(ctx, a)
		return nil
	}

	v, err := strconv.Atoi(fields[0])
	if err != nil {
		return eris.Errorf("unknown command %q", line)
	}
	a.controller.Input(ctx, v)
	return nil
}

// reload replaces the data wholesale and re-renders at the current control
// value. A failed reload keeps the previous data.
func reload(ctx context.Context, a *app) {
	if err := a.load(ctx); err != nil {
		logger.Error("reload failed, keeping previous data", "error", err)
		return
	}
	if _, err := a.controller.Recompute(ctx, a.controller.Control().Value); err != nil {
		logger.Error("recompute after reload failed", "error", err)
	}
}

// flushPending renders a debounced input that has not fired yet, bounded by
// SHUTDOWN_TIMEOUT.
func flushPending(a *app) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	_, err := a.controller.Flush(ctx)
	return err
}
