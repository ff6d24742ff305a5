package activator

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of an application instance.
type Status int32

const (
	NotMounted Status = iota
	Mounting
	Mounted
	Unmounting
	Broken
)

func (s Status) String() string {
	switch s {
	case NotMounted:
		return "NOT_MOUNTED"
	case Mounting:
		return "MOUNTING"
	case Mounted:
		return "MOUNTED"
	case Unmounting:
		return "UNMOUNTING"
	case Broken:
		return "BROKEN"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

// MarshalText renders the status name in JSON and logs.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is a point-in-time copy of an instance.
type Snapshot struct {
	Name      string    `json:"name"`
	Locator   string    `json:"locator"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}

// StatusChange is emitted to observers on every status write.
type StatusChange struct {
	BatchID string
	Name    string
	From    Status
	To      Status
	Err     error
}

// BatchResult summarizes one processed location change.
type BatchResult struct {
	ID        string        `json:"id"`
	Location  string        `json:"location"`
	Mounted   []string      `json:"mounted"`
	Unmounted []string      `json:"unmounted"`
	Broken    []string      `json:"broken"`
	Duration  time.Duration `json:"duration"`
}

// Observer receives lifecycle notifications. Calls happen on the batch's
// goroutines and must not block.
type Observer interface {
	StatusChanged(ev StatusChange)
	BatchCompleted(res BatchResult)
}
