// Command glance-repl is an interactive terminal host for the glance
// palette. Every line typed becomes the palette query; lines starting with
// ':' drive the palette. It talks to a running glanced and writes a TOML
// record of each step to stdout.
//
// Usage:
//
//	./glance-repl             # interactive, TOML on screen
//	./glance-repl > log.toml  # palette on screen, TOML to file
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Paranoid-AF/glance/client"
	"github.com/Paranoid-AF/glance/palette"
)

const prompt = "> "

func main() {
	socket := flag.String("socket", "", "daemon socket path (default: resolved like glanced)")
	verbose := flag.Bool("verbose", false, "debug logging to stderr")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	editor, err := NewEditor()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer editor.Close()

	tty := editor.Tty()
	fmt.Fprintf(tty, "\033[2J\033[H") // clear screen
	fmt.Fprintf(tty, "glance repl\r\n\r\n")
	fmt.Fprint(tty, crlf(helpText))

	c := client.New(*socket)
	win := &termWindow{w: tty}
	ctrl := palette.NewController(c, win, palette.Options{})
	defer ctrl.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.WatchClipboard(ctx, 0, ctrl.UpdateClipboard)

	// stdout writer: converts \n → \r\n when stdout is a terminal (raw mode),
	// passes \n through unchanged when redirected to a file.
	out := termWriter(os.Stdout)

	ctrl.Mount(ctx)
	render(tty, ctrl.Snapshot())

	for {
		line, err := editor.ReadLine(prompt)
		if err == io.EOF || err == ErrInterrupt {
			break
		}
		if err != nil {
			fmt.Fprintf(tty, "read error: %v\r\n", err)
			break
		}

		cmd := parseLine(line)
		if cmd.op == opQuit {
			break
		}
		if cmd.op == opHelp {
			fmt.Fprint(tty, crlf(helpText))
			continue
		}

		opErr := apply(ctx, ctrl, win, cmd)
		if opErr != nil {
			fmt.Fprintf(tty, "error: %v\r\n", opErr)
		}
		snap := ctrl.Snapshot()
		render(tty, snap)
		writeEntry(out, line, snap, opErr)
	}
}

// apply runs one parsed line against the controller.
func apply(ctx context.Context, ctrl *palette.Controller, win *termWindow, cmd command) error {
	// any palette interaction brings a hidden window back
	if cmd.op != opFocus && cmd.op != opHide && ctrl.State() == palette.StateHidden {
		win.show()
		ctrl.Focus(ctx)
	}

	switch cmd.op {
	case opQuery:
		ctrl.SetQuery(cmd.arg)
	case opFocus:
		win.show()
		ctrl.Focus(ctx)
	case opHide:
		ctrl.Hide()
	case opRun:
		if cmd.arg == "" {
			return ctrl.ActivateHighlighted(ctx)
		}
		return ctrl.Activate(ctx, cmd.arg)
	case opMove:
		ctrl.MoveHighlight(cmd.n)
	case opKey:
		if !ctrl.HandleShortcut(ctx, cmd.arg) {
			return fmt.Errorf("no clipboard shortcut %q", cmd.arg)
		}
	case opDismiss:
		ctrl.DismissPopover()
	case opUnknown:
		return fmt.Errorf("unknown command %q (try :help)", cmd.arg)
	}
	return nil
}
