package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/term"
)

// ErrInterrupt is returned when the user presses Ctrl-C.
var ErrInterrupt = errors.New("interrupted")

// Editor is a minimal line editor with history.
// It reads from /dev/tty so it works even when stdout is redirected.
type Editor struct {
	tty      *os.File
	oldState *term.State
	buf      []byte
	pos      int // cursor byte offset into buf

	history []string
	hpos    int    // index into history while browsing; len(history) when not
	draft   string // line being edited before browsing started
}

// NewEditor opens /dev/tty and switches to raw mode.
func NewEditor() (*Editor, error) {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/tty: %w", err)
	}

	old, err := term.MakeRaw(int(tty.Fd()))
	if err != nil {
		tty.Close()
		return nil, fmt.Errorf("raw mode: %w", err)
	}

	return &Editor{tty: tty, oldState: old}, nil
}

// Close restores terminal state and closes the tty fd.
func (e *Editor) Close() {
	term.Restore(int(e.tty.Fd()), e.oldState)
	e.tty.Close()
}

// Tty returns the tty file for writing prompts and the palette view.
func (e *Editor) Tty() *os.File {
	return e.tty
}

// ReadLine displays the prompt and reads one line. Up and Down walk the
// history of previous lines. Returns io.EOF on Ctrl-D with empty input.
func (e *Editor) ReadLine(prompt string) (string, error) {
	e.buf = e.buf[:0]
	e.pos = 0
	e.hpos = len(e.history)
	e.redraw(prompt)

	var esc [3]byte

	for {
		var b [1]byte
		if _, err := e.tty.Read(b[:]); err != nil {
			return "", err
		}

		switch b[0] {
		case 3: // Ctrl-C
			fmt.Fprintf(e.tty, "\r\n")
			return "", ErrInterrupt

		case 4: // Ctrl-D
			if len(e.buf) == 0 {
				fmt.Fprintf(e.tty, "\r\n")
				return "", io.EOF
			}

		case 13, 10: // Enter
			fmt.Fprintf(e.tty, "\r\n")
			line := string(e.buf)
			e.remember(line)
			return line, nil

		case 127, 8: // Backspace / Ctrl-H
			e.deleteBack(1)

		case 23: // Ctrl-W
			e.deleteWord()

		case 1: // Ctrl-A
			e.pos = 0

		case 5: // Ctrl-E
			e.pos = len(e.buf)

		case 21: // Ctrl-U
			e.buf = e.buf[:0]
			e.pos = 0

		case 27:
			if n, _ := e.tty.Read(esc[:1]); n == 0 || esc[0] != '[' {
				continue
			}
			if n, _ := e.tty.Read(esc[1:2]); n == 0 {
				continue
			}
			switch esc[1] {
			case 'A':
				e.browse(-1)
			case 'B':
				e.browse(1)
			case 'D':
				if e.pos > 0 {
					_, size := prevRune(e.buf, e.pos)
					e.pos -= size
				}
			case 'C':
				if e.pos < len(e.buf) {
					_, size := utf8.DecodeRune(e.buf[e.pos:])
					e.pos += size
				}
			case 'H':
				e.pos = 0
			case 'F':
				e.pos = len(e.buf)
			case '3': // Delete: \x1b[3~
				e.tty.Read(esc[2:3])
				if e.pos < len(e.buf) {
					_, size := utf8.DecodeRune(e.buf[e.pos:])
					e.buf = append(e.buf[:e.pos], e.buf[e.pos+size:]...)
				}
			}

		default:
			if b[0] >= 32 {
				ch := []byte{b[0]}
				if extra := utf8RuneLen(b[0]) - 1; extra > 0 {
					tmp := make([]byte, extra)
					io.ReadFull(e.tty, tmp)
					ch = append(ch, tmp...)
				}
				e.insert(ch)
			}
		}

		e.redraw(prompt)
	}
}

func (e *Editor) insert(ch []byte) {
	e.buf = append(e.buf[:e.pos], append(ch, e.buf[e.pos:]...)...)
	e.pos += len(ch)
}

// deleteBack removes n runes before the cursor.
func (e *Editor) deleteBack(n int) {
	for ; n > 0 && e.pos > 0; n-- {
		_, size := prevRune(e.buf, e.pos)
		e.buf = append(e.buf[:e.pos-size], e.buf[e.pos:]...)
		e.pos -= size
	}
}

// deleteWord removes trailing spaces and then the word before the cursor.
func (e *Editor) deleteWord() {
	for e.pos > 0 && e.buf[e.pos-1] == ' ' {
		e.deleteBack(1)
	}
	for e.pos > 0 && e.buf[e.pos-1] != ' ' {
		e.deleteBack(1)
	}
}

func (e *Editor) remember(line string) {
	if line == "" {
		return
	}
	if n := len(e.history); n > 0 && e.history[n-1] == line {
		return
	}
	e.history = append(e.history, line)
}

// browse moves through history by delta, restoring the draft past the end.
func (e *Editor) browse(delta int) {
	next := e.hpos + delta
	if next < 0 || next > len(e.history) {
		return
	}
	if e.hpos == len(e.history) {
		e.draft = string(e.buf)
	}
	e.hpos = next
	line := e.draft
	if next < len(e.history) {
		line = e.history[next]
	}
	e.buf = append(e.buf[:0], line...)
	e.pos = len(e.buf)
}

// redraw clears the current line and redraws prompt + buffer with cursor.
func (e *Editor) redraw(prompt string) {
	fmt.Fprintf(e.tty, "\r\x1b[K%s%s", prompt, string(e.buf))
	if tail := utf8.RuneCount(e.buf[e.pos:]); tail > 0 {
		fmt.Fprintf(e.tty, "\x1b[%dD", tail)
	}
}

// prevRune returns the rune and byte size of the rune before pos.
func prevRune(buf []byte, pos int) (rune, int) {
	if pos <= 0 {
		return 0, 0
	}
	i := pos - 1
	for i > 0 && !utf8.RuneStart(buf[i]) {
		i--
	}
	return utf8.DecodeRune(buf[i:pos])
}

// utf8RuneLen returns the expected byte length of a UTF-8 sequence
// from its leading byte.
func utf8RuneLen(lead byte) int {
	switch {
	case lead < 0xC0:
		return 1
	case lead < 0xE0:
		return 2
	case lead < 0xF0:
		return 3
	}
	return 4
}
