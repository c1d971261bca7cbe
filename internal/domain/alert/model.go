package alert

import (
	"fmt"
	"github.com/burenotti/go_coach_backend/internal/domain/activity"
	"github.com/samber/lo"
	"math"
	"sort"
	"time"
)

type Type string

const (
	TypeNoWorkout         Type = "NO_WORKOUT"
	TypeMissedScheduled   Type = "MISSED_SCHEDULED"
	TypeNutritionSlipping Type = "NUTRITION_SLIPPING"
	TypeInactive          Type = "INACTIVE"
)

type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityWarning  Priority = "WARNING"
	PriorityNotice   Priority = "NOTICE"
)

// Rank orders priorities from most to least urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityWarning:
		return 1
	case PriorityNotice:
		return 2
	default:
		return 3
	}
}

// NeverDays is the days-since value reported when nothing was ever logged.
const NeverDays = math.MaxInt

type Alert struct {
	AlertID         string
	ClientID        string
	ClientName      string
	Type            Type
	Priority        Priority
	Title           string
	Subtitle        string
	DaysSince       int
	SuggestedAction string
}

type Rules struct {
	NoWorkoutWarningDays  int
	NoWorkoutCriticalDays int
	MissedWarningDays     int
	MissedCriticalDays    int
	MaxMissedPerClient    int
	NutritionNoticeDays   int
	NutritionWarningDays  int
	InactiveDays          int
	Location              *time.Location
}

func DefaultRules() Rules {
	return Rules{
		NoWorkoutWarningDays:  3,
		NoWorkoutCriticalDays: 5,
		MissedWarningDays:     1,
		MissedCriticalDays:    3,
		MaxMissedPerClient:    3,
		NutritionNoticeDays:   3,
		NutritionWarningDays:  7,
		InactiveDays:          14,
		Location:              time.UTC,
	}
}

// ID builds the deterministic alert id dismissals are keyed by.
func ID(clientID, subtype string) string {
	return clientID + "_" + subtype
}

// Evaluate applies every rule to one client. It has no side effects, so
// clients may be evaluated concurrently.
func Evaluate(s *activity.Snapshot, now time.Time, r Rules) []Alert {
	var alerts []Alert
	if a, ok := NoWorkout(s, now, r); ok {
		alerts = append(alerts, a)
	}
	alerts = append(alerts, MissedScheduled(s, now, r)...)
	if a, ok := NutritionSlipping(s, now, r); ok {
		alerts = append(alerts, a)
	}
	if a, ok := Inactive(s, now, r); ok {
		alerts = append(alerts, a)
	}
	return alerts
}

func NoWorkout(s *activity.Snapshot, now time.Time, r Rules) (Alert, bool) {
	days := NeverDays
	if last, ok := s.LastWorkoutAt(); ok {
		days = activity.DaysBetween(last, now, r.Location)
	}

	var priority Priority
	switch {
	case days >= r.NoWorkoutCriticalDays:
		priority = PriorityCritical
	case days >= r.NoWorkoutWarningDays:
		priority = PriorityWarning
	default:
		return Alert{}, false
	}

	title := fmt.Sprintf("%s hasn't worked out in %d days", nameOf(s), days)
	if days == NeverDays {
		title = fmt.Sprintf("%s hasn't logged a workout yet", nameOf(s))
	}

	return Alert{
		AlertID:         ID(s.ClientID, "no_workout"),
		ClientID:        s.ClientID,
		ClientName:      s.ClientName,
		Type:            TypeNoWorkout,
		Priority:        priority,
		Title:           title,
		Subtitle:        "No completed workouts recently",
		DaysSince:       days,
		SuggestedAction: "Send a check-in message",
	}, true
}

// MissedPriority grades a scheduled workout missed days ago.
func MissedPriority(days int, r Rules) Priority {
	switch {
	case days >= r.MissedCriticalDays:
		return PriorityCritical
	case days >= r.MissedWarningDays:
		return PriorityWarning
	default:
		return PriorityNotice
	}
}

func MissedScheduled(s *activity.Snapshot, now time.Time, r Rules) []Alert {
	missed := s.Missed(now, r.Location)
	sort.SliceStable(missed, func(i, j int) bool {
		return missed[i].ScheduledFor.After(missed[j].ScheduledFor)
	})
	if r.MaxMissedPerClient > 0 && len(missed) > r.MaxMissedPerClient {
		missed = missed[:r.MaxMissedPerClient]
	}

	return lo.Map(missed, func(sw activity.ScheduledWorkout, _ int) Alert {
		days := activity.DaysBetween(sw.ScheduledFor, now, r.Location)
		return Alert{
			AlertID:         ID(s.ClientID, "missed_"+sw.ScheduledID),
			ClientID:        s.ClientID,
			ClientName:      s.ClientName,
			Type:            TypeMissedScheduled,
			Priority:        MissedPriority(days, r),
			Title:           fmt.Sprintf("%s missed a scheduled workout", nameOf(s)),
			Subtitle:        fmt.Sprintf("Scheduled for %s", sw.ScheduledFor.In(r.Location).Format(time.DateOnly)),
			DaysSince:       days,
			SuggestedAction: "Reschedule the missed workout",
		}
	})
}

func NutritionSlipping(s *activity.Snapshot, now time.Time, r Rules) (Alert, bool) {
	last, ok := s.LastNutritionAt()
	if !ok {
		return Alert{}, false
	}
	days := activity.DaysBetween(last, now, r.Location)

	var priority Priority
	switch {
	case days >= r.NutritionWarningDays:
		priority = PriorityWarning
	case days >= r.NutritionNoticeDays:
		priority = PriorityNotice
	default:
		return Alert{}, false
	}

	return Alert{
		AlertID:         ID(s.ClientID, "nutrition_slipping"),
		ClientID:        s.ClientID,
		ClientName:      s.ClientName,
		Type:            TypeNutritionSlipping,
		Priority:        priority,
		Title:           fmt.Sprintf("%s stopped logging meals", nameOf(s)),
		Subtitle:        fmt.Sprintf("Last nutrition log %d days ago", days),
		DaysSince:       days,
		SuggestedAction: "Review their meal plan",
	}, true
}

func Inactive(s *activity.Snapshot, now time.Time, r Rules) (Alert, bool) {
	last, ok := s.LastActivityAt()
	if !ok || r.InactiveDays <= 0 {
		return Alert{}, false
	}
	days := activity.DaysBetween(last, now, r.Location)
	if days < r.InactiveDays {
		return Alert{}, false
	}

	return Alert{
		AlertID:         ID(s.ClientID, "inactive"),
		ClientID:        s.ClientID,
		ClientName:      s.ClientName,
		Type:            TypeInactive,
		Priority:        PriorityWarning,
		Title:           fmt.Sprintf("%s has gone quiet", nameOf(s)),
		Subtitle:        fmt.Sprintf("No activity for %d days", days),
		DaysSince:       days,
		SuggestedAction: "Reach out to re-engage",
	}, true
}

// Suppress drops alerts whose id is in dismissed.
func Suppress(alerts []Alert, dismissed map[string]struct{}) []Alert {
	return lo.Filter(alerts, func(a Alert, _ int) bool {
		_, ok := dismissed[a.AlertID]
		return !ok
	})
}

// Sort orders alerts by priority, then longest overdue first, then by id.
func Sort(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		if a.DaysSince != b.DaysSince {
			return a.DaysSince > b.DaysSince
		}
		return a.AlertID < b.AlertID
	})
}

func nameOf(s *activity.Snapshot) string {
	if s.ClientName == "" {
		return "Your client"
	}
	return s.ClientName
}
