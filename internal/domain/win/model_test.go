package win_test

import (
	"testing"
	"time"

	"github.com/burenotti/go_coach_backend/internal/domain/activity"
	"github.com/burenotti/go_coach_backend/internal/domain/win"
)

// Friday.
var now = time.Date(2024, 5, 10, 18, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return now.AddDate(0, 0, -n)
}

func ptr(v float64) *float64 {
	return &v
}

func streakOf(n int) []activity.WorkoutLog {
	logs := make([]activity.WorkoutLog, 0, n)
	for i := 0; i < n; i++ {
		logs = append(logs, activity.WorkoutLog{LogID: "l", CompletedAt: daysAgo(i)})
	}
	return logs
}

func TestStreakMilestone(t *testing.T) {
	rules := win.DefaultRules()

	cases := []struct {
		length int
		fires  bool
	}{
		{6, false},
		{7, true},
		{8, false},
		{14, true},
	}
	for _, tc := range cases {
		s := &activity.Snapshot{ClientID: "c1", Workouts: streakOf(tc.length)}
		w, ok := win.StreakMilestone(s, now, rules)
		if ok != tc.fires {
			t.Fatalf("streak %d: expected fires=%v, got %v", tc.length, tc.fires, ok)
		}
		if ok && w.WinID != win.ID("c1", "streak", tc.length) {
			t.Fatalf("unexpected win id %s", w.WinID)
		}
	}
}

func TestPersonalRecordsKeepsBestPerExercise(t *testing.T) {
	rules := win.DefaultRules()
	s := &activity.Snapshot{
		ClientID: "c1",
		Records: []activity.PersonalRecord{
			{RecordID: "r1", ExerciseID: "squat", ExerciseName: "Squat", Weight: 110, PreviousBest: ptr(100), AchievedAt: now.Add(-2 * time.Hour)},
			{RecordID: "r2", ExerciseID: "squat", ExerciseName: "Squat", Weight: 115, PreviousBest: ptr(110), AchievedAt: now.Add(-time.Hour)},
			{RecordID: "r3", ExerciseID: "bench", ExerciseName: "Bench", Weight: 80, AchievedAt: now.Add(-time.Hour)},
			{RecordID: "r4", ExerciseID: "deadlift", ExerciseName: "Deadlift", Weight: 200, PreviousBest: ptr(190), AchievedAt: daysAgo(5)},
		},
	}

	wins := win.PersonalRecords(s, now, rules)
	if len(wins) != 1 {
		t.Fatalf("expected one squat pr, got %+v", wins)
	}
	if wins[0].Subtitle != "115 kg, up from 110 kg" {
		t.Fatalf("unexpected subtitle %q", wins[0].Subtitle)
	}
	if wins[0].WinID != "c1_pr_squat_2024-05-10" {
		t.Fatalf("unexpected win id %s", wins[0].WinID)
	}
}

func TestVolumeRecord(t *testing.T) {
	rules := win.DefaultRules()

	cases := []struct {
		name  string
		prior *float64
		logs  []activity.WorkoutLog
		want  string
	}{
		{
			name: "first workout is not a record",
			logs: []activity.WorkoutLog{{LogID: "l1", CompletedAt: now.Add(-time.Hour), Volume: 5000}},
		},
		{
			name: "beats earlier workout",
			logs: []activity.WorkoutLog{
				{LogID: "l1", CompletedAt: daysAgo(10), Volume: 4000},
				{LogID: "l2", CompletedAt: now.Add(-time.Hour), Volume: 5000},
			},
			want: "c1_volume_l2",
		},
		{
			name:  "beats prior window",
			prior: ptr(4500),
			logs:  []activity.WorkoutLog{{LogID: "l1", CompletedAt: now.Add(-time.Hour), Volume: 5000}},
			want:  "c1_volume_l1",
		},
		{
			name:  "below prior window",
			prior: ptr(6000),
			logs:  []activity.WorkoutLog{{LogID: "l1", CompletedAt: now.Add(-time.Hour), Volume: 5000}},
		},
		{
			name: "record too old",
			logs: []activity.WorkoutLog{
				{LogID: "l1", CompletedAt: daysAgo(10), Volume: 4000},
				{LogID: "l2", CompletedAt: daysAgo(5), Volume: 5000},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &activity.Snapshot{ClientID: "c1", Workouts: tc.logs, PriorBestVolume: tc.prior}
			w, ok := win.VolumeRecord(s, now, rules)
			if ok != (tc.want != "") {
				t.Fatalf("expected fires=%v, got %+v", tc.want != "", w)
			}
			if ok && w.WinID != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, w.WinID)
			}
		})
	}
}

func TestNutritionStreak(t *testing.T) {
	s := &activity.Snapshot{ClientID: "c1"}
	for i := 0; i < 7; i++ {
		s.Nutrition = append(s.Nutrition, activity.NutritionLog{LogID: "n", LoggedAt: daysAgo(i)})
	}

	w, ok := win.NutritionStreak(s, now, win.DefaultRules())
	if !ok || w.WinID != "c1_nutrition_streak_7" {
		t.Fatalf("expected 7 day nutrition streak, got %+v %v", w, ok)
	}
}

func TestConsistencyCountsSinceMonday(t *testing.T) {
	rules := win.DefaultRules()

	// Monday through Thursday of the current week plus last Sunday.
	s := &activity.Snapshot{ClientID: "c1", Workouts: []activity.WorkoutLog{
		{CompletedAt: daysAgo(4)},
		{CompletedAt: daysAgo(3)},
		{CompletedAt: daysAgo(2)},
		{CompletedAt: daysAgo(5)},
	}}
	if _, ok := win.Consistency(s, now, rules); ok {
		t.Fatalf("sunday belongs to the previous week")
	}

	s.Workouts = append(s.Workouts, activity.WorkoutLog{CompletedAt: daysAgo(1)})
	w, ok := win.Consistency(s, now, rules)
	if !ok {
		t.Fatalf("expected consistency win with four workouts this week")
	}
	if w.WinID != "c1_consistency_2024-05-10" {
		t.Fatalf("unexpected win id %s", w.WinID)
	}
}

func TestMarkCelebratedAndSort(t *testing.T) {
	wins := []win.Win{
		{WinID: "b", CreatedAt: daysAgo(1)},
		{WinID: "a", CreatedAt: now},
		{WinID: "c", CreatedAt: daysAgo(1)},
	}

	wins = win.MarkCelebrated(wins, map[string]struct{}{"c": {}})
	win.Sort(wins)

	want := []string{"a", "b", "c"}
	for i, id := range want {
		if wins[i].WinID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, wins[i].WinID)
		}
	}
	if wins[0].Celebrated || wins[1].Celebrated || !wins[2].Celebrated {
		t.Fatalf("unexpected celebrated flags %+v", wins)
	}
}
