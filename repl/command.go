package main

import (
	"strconv"
	"strings"
)

const helpText = `commands:
  <text>       set the query (":" alone clears it)
  :focus       re-capture text and reload the catalog
  :hide        hide the palette
  :run [id]    run a command, or the highlighted one
  :up / :down  move the highlight
  :key <n>     paste clipboard entry n (empty query only)
  :dismiss     close the popover
  :help        show this help
  :quit        exit

`

type op int

const (
	opQuery op = iota
	opFocus
	opHide
	opRun
	opMove
	opKey
	opDismiss
	opHelp
	opQuit
	opUnknown
)

type command struct {
	op  op
	arg string
	n   int
}

// parseLine maps an input line to a palette operation. Text not starting
// with ':' is the query verbatim.
func parseLine(line string) command {
	if !strings.HasPrefix(line, ":") {
		return command{op: opQuery, arg: line}
	}
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "":
		return command{op: opQuery}
	case "focus", "f":
		return command{op: opFocus}
	case "hide":
		return command{op: opHide}
	case "run", "r":
		return command{op: opRun, arg: arg}
	case "up", "k":
		return command{op: opMove, n: repeat(arg, -1)}
	case "down", "j":
		return command{op: opMove, n: repeat(arg, 1)}
	case "key":
		return command{op: opKey, arg: arg}
	case "dismiss", "d":
		return command{op: opDismiss}
	case "help", "h", "?":
		return command{op: opHelp}
	case "quit", "q":
		return command{op: opQuit}
	}
	return command{op: opUnknown, arg: name}
}

// repeat scales sign by an optional count argument.
func repeat(arg string, sign int) int {
	if n, err := strconv.Atoi(arg); err == nil && n > 0 {
		return sign * n
	}
	return sign
}
