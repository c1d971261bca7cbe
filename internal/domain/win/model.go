package win

import (
	"fmt"
	"github.com/burenotti/go_coach_backend/internal/domain/activity"
	"github.com/samber/lo"
	"sort"
	"time"
)

type Type string

const (
	TypeStreakMilestone Type = "STREAK_MILESTONE"
	TypePersonalRecord  Type = "PERSONAL_RECORD"
	TypeVolumeRecord    Type = "VOLUME_RECORD"
	TypeNutritionStreak Type = "NUTRITION_STREAK"
	TypeConsistency     Type = "CONSISTENCY"
)

type Win struct {
	WinID        string
	ClientID     string
	ClientName   string
	Type         Type
	Title        string
	Subtitle     string
	Celebratable bool
	Celebrated   bool
	CreatedAt    time.Time
}

type Rules struct {
	StreakMilestones          []int
	NutritionStreakMilestones []int
	RecentWindow              time.Duration
	ConsistencyWorkouts       int
	Location                  *time.Location
}

func DefaultRules() Rules {
	return Rules{
		StreakMilestones:          []int{7, 14, 30, 60, 90, 180, 365},
		NutritionStreakMilestones: []int{7, 14, 30, 60, 90},
		RecentWindow:              48 * time.Hour,
		ConsistencyWorkouts:       4,
		Location:                  time.UTC,
	}
}

func ID(clientID string, parts ...any) string {
	id := clientID
	for _, p := range parts {
		id += fmt.Sprintf("_%v", p)
	}
	return id
}

// Evaluate applies every rule to one client.
func Evaluate(s *activity.Snapshot, now time.Time, r Rules) []Win {
	var wins []Win
	if w, ok := StreakMilestone(s, now, r); ok {
		wins = append(wins, w)
	}
	wins = append(wins, PersonalRecords(s, now, r)...)
	if w, ok := VolumeRecord(s, now, r); ok {
		wins = append(wins, w)
	}
	if w, ok := NutritionStreak(s, now, r); ok {
		wins = append(wins, w)
	}
	if w, ok := Consistency(s, now, r); ok {
		wins = append(wins, w)
	}
	return wins
}

func StreakMilestone(s *activity.Snapshot, now time.Time, r Rules) (Win, bool) {
	streak := activity.Streak(s.WorkoutTimes(), now, r.Location)
	if !lo.Contains(r.StreakMilestones, streak) {
		return Win{}, false
	}

	last, _ := s.LastWorkoutAt()
	return Win{
		WinID:        ID(s.ClientID, "streak", streak),
		ClientID:     s.ClientID,
		ClientName:   s.ClientName,
		Type:         TypeStreakMilestone,
		Title:        fmt.Sprintf("%s hit a %d-day streak", nameOf(s), streak),
		Subtitle:     fmt.Sprintf("%d days in a row with a workout", streak),
		Celebratable: true,
		CreatedAt:    last,
	}, true
}

func PersonalRecords(s *activity.Snapshot, now time.Time, r Rules) []Win {
	best := make(map[string]activity.PersonalRecord)
	for _, rec := range s.Records {
		if !rec.Improved() || !recent(rec.AchievedAt, now, r.RecentWindow) {
			continue
		}
		if cur, ok := best[rec.ExerciseID]; !ok || rec.Weight > cur.Weight {
			best[rec.ExerciseID] = rec
		}
	}

	wins := make([]Win, 0, len(best))
	for _, rec := range best {
		name := rec.ExerciseName
		if name == "" {
			name = "an exercise"
		}
		wins = append(wins, Win{
			WinID:        ID(s.ClientID, "pr", rec.ExerciseID, rec.AchievedAt.In(r.Location).Format(time.DateOnly)),
			ClientID:     s.ClientID,
			ClientName:   s.ClientName,
			Type:         TypePersonalRecord,
			Title:        fmt.Sprintf("%s set a new PR on %s", nameOf(s), name),
			Subtitle:     fmt.Sprintf("%s, up from %s", formatWeight(rec.Weight), formatWeight(*rec.PreviousBest)),
			Celebratable: true,
			CreatedAt:    rec.AchievedAt,
		})
	}
	sort.Slice(wins, func(i, j int) bool { return wins[i].WinID < wins[j].WinID })
	return wins
}

// VolumeRecord fires when the client's latest recent workout moved more
// total weight than anything logged before it.
func VolumeRecord(s *activity.Snapshot, now time.Time, r Rules) (Win, bool) {
	logs := lo.Filter(s.Workouts, func(w activity.WorkoutLog, _ int) bool {
		return !w.CompletedAt.IsZero() && w.Volume > 0
	})
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].CompletedAt.Before(logs[j].CompletedAt) })

	var (
		prior   float64
		hasPast bool
		record  *activity.WorkoutLog
	)
	if s.PriorBestVolume != nil {
		prior, hasPast = *s.PriorBestVolume, true
	}

	for i := range logs {
		w := logs[i]
		if hasPast && w.Volume > prior && recent(w.CompletedAt, now, r.RecentWindow) {
			record = &logs[i]
		}
		if !hasPast || w.Volume > prior {
			prior, hasPast = w.Volume, true
		}
	}

	if record == nil {
		return Win{}, false
	}

	return Win{
		WinID:        ID(s.ClientID, "volume", record.LogID),
		ClientID:     s.ClientID,
		ClientName:   s.ClientName,
		Type:         TypeVolumeRecord,
		Title:        fmt.Sprintf("%s moved a record volume", nameOf(s)),
		Subtitle:     fmt.Sprintf("%s in one session", formatWeight(record.Volume)),
		Celebratable: true,
		CreatedAt:    record.CompletedAt,
	}, true
}

func NutritionStreak(s *activity.Snapshot, now time.Time, r Rules) (Win, bool) {
	streak := activity.Streak(s.NutritionTimes(), now, r.Location)
	if !lo.Contains(r.NutritionStreakMilestones, streak) {
		return Win{}, false
	}

	last, _ := s.LastNutritionAt()
	return Win{
		WinID:        ID(s.ClientID, "nutrition_streak", streak),
		ClientID:     s.ClientID,
		ClientName:   s.ClientName,
		Type:         TypeNutritionStreak,
		Title:        fmt.Sprintf("%s logged meals %d days straight", nameOf(s), streak),
		Subtitle:     "Nutrition tracking streak",
		Celebratable: true,
		CreatedAt:    last,
	}, true
}

// Consistency fires once per day while the client has enough workouts since
// Monday of the current week.
func Consistency(s *activity.Snapshot, now time.Time, r Rules) (Win, bool) {
	weekStart := activity.WeekStart(now, r.Location)
	today := activity.Day(now, r.Location)

	var (
		count  int
		latest time.Time
	)
	for _, t := range s.WorkoutTimes() {
		d := activity.Day(t, r.Location)
		if d.Before(weekStart) || d.After(today) {
			continue
		}
		count++
		if t.After(latest) {
			latest = t
		}
	}

	if r.ConsistencyWorkouts <= 0 || count < r.ConsistencyWorkouts {
		return Win{}, false
	}

	return Win{
		WinID:        ID(s.ClientID, "consistency", today.Format(time.DateOnly)),
		ClientID:     s.ClientID,
		ClientName:   s.ClientName,
		Type:         TypeConsistency,
		Title:        fmt.Sprintf("%s is on a roll this week", nameOf(s)),
		Subtitle:     fmt.Sprintf("%d workouts since Monday", count),
		Celebratable: true,
		CreatedAt:    latest,
	}, true
}

// MarkCelebrated flags wins whose id is in celebrated.
func MarkCelebrated(wins []Win, celebrated map[string]struct{}) []Win {
	return lo.Map(wins, func(w Win, _ int) Win {
		_, w.Celebrated = celebrated[w.WinID]
		return w
	})
}

// Sort orders wins newest first, then by id.
func Sort(wins []Win) {
	sort.SliceStable(wins, func(i, j int) bool {
		if !wins[i].CreatedAt.Equal(wins[j].CreatedAt) {
			return wins[i].CreatedAt.After(wins[j].CreatedAt)
		}
		return wins[i].WinID < wins[j].WinID
	})
}

func recent(t, now time.Time, window time.Duration) bool {
	return !t.IsZero() && !t.After(now) && now.Sub(t) <= window
}

func formatWeight(kg float64) string {
	return fmt.Sprintf("%g kg", kg)
}

func nameOf(s *activity.Snapshot) string {
	if s.ClientName == "" {
		return "Your client"
	}
	return s.ClientName
}
