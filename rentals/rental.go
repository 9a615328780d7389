package rentals

import (
	"fmt"
	"time"
)

// Record is one active rental. (UserID, BookID) is unique.
type Record struct {
	UserID    string    `json:"userId"`
	BookID    int64     `json:"bookId"`
	DateAdded time.Time `json:"dateAdded"`
}

// Outcome is the domain result of a ledger operation. Infrastructure failures are reported as errors instead.
type Outcome int

const (
	OK Outcome = iota
	NotFound
	LimitExceeded
	Conflict
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case NotFound:
		return "not_found"
	case LimitExceeded:
		return "limit_exceeded"
	case Conflict:
		return "conflict"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}
