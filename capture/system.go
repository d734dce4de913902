// Package capture reads ambient text from the OS clipboard and primary
// selection, writes paste text back, and keeps a clipboard history.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	glance "github.com/Paranoid-AF/glance"
)

// ErrNoTool is returned when no clipboard helper is installed.
var ErrNoTool = errors.New("no clipboard tool found")

const cmdTimeout = 2 * time.Second

// tool is one external helper invocation.
type tool struct {
	name string
	args []string
}

var (
	clipboardReaders = []tool{
		{"pbpaste", nil},
		{"wl-paste", []string{"-n"}},
		{"xclip", []string{"-o", "-selection", "clipboard"}},
		{"xsel", []string{"-ob"}},
	}
	selectionReaders = []tool{
		{"wl-paste", []string{"-p", "-n"}},
		{"xclip", []string{"-o", "-selection", "primary"}},
		{"xsel", []string{"-op"}},
	}
	clipboardWriters = []tool{
		{"pbcopy", nil},
		{"wl-copy", nil},
		{"xclip", []string{"-i", "-selection", "clipboard"}},
	}
)

// System captures text through the platform's clipboard helpers
// (pbpaste/pbcopy, wl-clipboard, xclip, xsel). The first installed helper
// that succeeds wins.
type System struct {
	lookPath func(string) (string, error)
	run      func(ctx context.Context, stdin string, name string, args ...string) (string, error)
}

// NewSystem creates a System that runs the real helpers.
func NewSystem() *System {
	return &System{lookPath: exec.LookPath, run: runCmd}
}

// CaptureText reads the clipboard or the primary selection. macOS has no
// primary selection, so selection reads there return empty text.
func (s *System) CaptureText(ctx context.Context, mode glance.CaptureMode) (glance.Capture, error) {
	var tools []tool
	switch mode {
	case glance.CaptureClipboard:
		tools = clipboardReaders
	case glance.CaptureSelection:
		if runtime.GOOS == "darwin" {
			return glance.Capture{Source: mode}, nil
		}
		tools = selectionReaders
	default:
		return glance.Capture{}, fmt.Errorf("unknown capture mode %q", mode)
	}
	out, err := s.first(ctx, tools, "")
	if err != nil {
		return glance.Capture{}, fmt.Errorf("read %s: %w", mode, err)
	}
	return glance.Capture{Text: out, Source: mode}, nil
}

// Paste places text on the clipboard so the focused application can
// receive it.
func (s *System) Paste(ctx context.Context, text string) error {
	if _, err := s.first(ctx, clipboardWriters, text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}

func (s *System) first(ctx context.Context, tools []tool, stdin string) (string, error) {
	var lastErr error
	for _, t := range tools {
		if _, err := s.lookPath(t.name); err != nil {
			continue
		}
		out, err := s.run(ctx, stdin, t.name, t.args...)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", t.name, err)
			continue
		}
		return out, nil
	}
	if lastErr == nil {
		return "", ErrNoTool
	}
	return "", lastErr
}

func runCmd(ctx context.Context, stdin string, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, cmdTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}
