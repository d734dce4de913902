// Command glance-tui is a full-screen terminal host for the glance palette,
// connected to a running glanced.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Paranoid-AF/glance/client"
)

func main() {
	socket := flag.String("socket", "", "daemon socket path (default: resolved like glanced)")
	logPath := flag.String("log", "", "write logs to this file")
	verbose := flag.Bool("verbose", false, "debug logging")
	flag.Parse()

	// the terminal belongs to the UI, so logs go to a file or nowhere
	var logOut io.Writer = io.Discard
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := client.New(*socket)
	m := newModel(ctx, c, nil)
	defer m.close()
	go c.WatchClipboard(ctx, 0, m.ctrl.UpdateClipboard)

	if _, err := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithReportFocus(),
		tea.WithMouseAllMotion(),
	).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
