package crawl

import (
	"fmt"
	"time"
)

// PageKind discriminates the two page types the crawler understands.
type PageKind int

const (
	KindListing PageKind = iota
	KindDetail
)

func (k PageKind) String() string {
	switch k {
	case KindListing:
		return "listing"
	case KindDetail:
		return "detail"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Task is one unit of crawl work: fetch a URL and hand the page body to the
// extractor. Detail tasks carry the listing page URL that discovered them.
type Task struct {
	URL        string
	Kind       PageKind
	Attempt    int
	ParentURL  string
	EnqueuedAt time.Time
}

// State tracks a task through its lifecycle.
type State int

const (
	StatePending State = iota
	StateInFlight
	StateSucceeded
	StatePermanentlyFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateInFlight:
		return "in_flight"
	case StateSucceeded:
		return "succeeded"
	case StatePermanentlyFailed:
		return "permanently_failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// transitions is the allowed state machine. Retries stay within InFlight:
// the interceptor owns per-attempt looping, the scheduler only observes
// terminal outcomes.
var transitions = map[State][]State{
	StatePending:  {StateInFlight},
	StateInFlight: {StateSucceeded, StatePermanentlyFailed},
}

func validTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
