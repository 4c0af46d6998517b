package sdk

import "fmt"

// Status is a lifecycle notification emitted during an acquisition.
type Status int

const (
	StatusLoading Status = iota + 1
	StatusLoaded
	StatusInitializing
	StatusInitialized
	StatusCreating
)

var statusNames = map[Status]string{
	StatusLoading:      "sdk-loading",
	StatusLoaded:       "sdk-loaded",
	StatusInitializing: "sdk-initializing",
	StatusInitialized:  "sdk-initialized",
	StatusCreating:     "creating",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// ParseStatus returns the status with the given name.
func ParseStatus(name string) (Status, error) {
	for s, n := range statusNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", name)
}

// Tracker forwards status notifications of a single acquisition.
// Every status is emitted at most once and in order; a regression panics.
type Tracker struct {
	notify func(Status)
	last   Status
}

// NewTracker creates a tracker forwarding to notify, which may be nil.
func NewTracker(notify func(Status)) *Tracker {
	return &Tracker{notify: notify}
}

// Emit records s and forwards it.
func (t *Tracker) Emit(s Status) {
	if _, known := statusNames[s]; !known {
		panic(fmt.Sprintf("sdk: unknown status %d", int(s)))
	}
	if s <= t.last {
		panic(fmt.Sprintf("sdk: status transition %s -> %s is not forward", t.last, s))
	}
	t.last = s
	if t.notify != nil {
		t.notify(s)
	}
}

// Last returns the most recently emitted status, or 0.
func (t *Tracker) Last() Status {
	return t.last
}
