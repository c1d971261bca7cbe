package ledger

import (
	"errors"
	"time"
)

var (
	ErrEmptyItemID = errors.New("item id is required")
)

type Kind string

const (
	KindDismissal   Kind = "dismissal"
	KindCelebration Kind = "celebration"
)

// DefaultRetention is how long an acknowledgement hides a recomputed item.
const DefaultRetention = 14 * 24 * time.Hour

// Entry records that a coach acknowledged an alert or win.
type Entry struct {
	CoachID string
	ItemID  string
	Kind    Kind
	At      time.Time
}

func NewEntry(coachID, itemID string, kind Kind, at time.Time) (Entry, error) {
	if itemID == "" {
		return Entry{}, ErrEmptyItemID
	}
	return Entry{CoachID: coachID, ItemID: itemID, Kind: kind, At: at}, nil
}

// Active reports whether the entry still applies at now. Expiry is lazy:
// nothing has to delete old entries for them to stop counting.
func (e Entry) Active(now time.Time, retention time.Duration) bool {
	return now.Before(e.At.Add(retention))
}

// Cutoff is the oldest timestamp an active entry can carry.
func Cutoff(now time.Time, retention time.Duration) time.Time {
	return now.Add(-retention)
}

// ActiveItems returns the ids of entries of kind that still apply at now.
func ActiveItems(entries []Entry, kind Kind, now time.Time, retention time.Duration) map[string]struct{} {
	items := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.Kind == kind && e.Active(now, retention) {
			items[e.ItemID] = struct{}{}
		}
	}
	return items
}
