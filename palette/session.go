package palette

import glance "github.com/Paranoid-AF/glance"

// PopoverState is the lifecycle state of the inline result popover.
type PopoverState int

const (
	PopoverClosed PopoverState = iota
	PopoverProcessing
	PopoverSuccess
	PopoverError
)

func (s PopoverState) String() string {
	switch s {
	case PopoverProcessing:
		return "processing"
	case PopoverSuccess:
		return "success"
	case PopoverError:
		return "error"
	}
	return "closed"
}

// Popover holds what the popover currently shows.
type Popover struct {
	State   PopoverState
	Content string
}

// Selection is the highlighted row.
type Selection struct {
	ID   string
	Kind glance.Kind
}

// Session is the mutable state of one palette showing.
type Session struct {
	Query        string
	CapturedText string
	// Commands is the catalog as loaded for this session, before ranking.
	Commands        []glance.Command
	LoadingCommands bool
	Selection       *Selection
	Popover         Popover
	// ExecutingID is the command whose action is in flight.
	ExecutingID string
}

// Reset returns the session to its defaults, dropping the previous catalog
// so nothing is ranked against the new capture before it loads.
func (s *Session) Reset() {
	*s = Session{}
}
