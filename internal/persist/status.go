package persist

import "time"

// Status is the save state shown for the active image.
type Status int

const (
	Idle Status = iota
	Saving
	Error
)

var statusNames = map[Status]string{
	Idle:   "saved",
	Saving: "saving",
	Error:  "error",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "unknown"
}

// StatusEvent is delivered to listeners whenever the active image's status
// changes.
type StatusEvent struct {
	ImageID string
	Status  Status
	Err     error
	At      time.Time
}

// Snapshot is the current status of the active image.
type Snapshot struct {
	ImageID   string
	Status    Status
	Err       error
	LastSaved time.Time
}
