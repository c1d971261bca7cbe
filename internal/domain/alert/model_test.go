package alert_test

import (
	"testing"
	"time"

	"github.com/burenotti/go_coach_backend/internal/domain/activity"
	"github.com/burenotti/go_coach_backend/internal/domain/alert"
)

var now = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return now.AddDate(0, 0, -n)
}

func workedOut(days ...int) []activity.WorkoutLog {
	logs := make([]activity.WorkoutLog, 0, len(days))
	for _, d := range days {
		logs = append(logs, activity.WorkoutLog{LogID: "l", WorkoutID: "w", CompletedAt: daysAgo(d)})
	}
	return logs
}

func TestIDIsDeterministic(t *testing.T) {
	if got := alert.ID("client-42", "no_workout"); got != "client-42_no_workout" {
		t.Fatalf("unexpected id %s", got)
	}
	s := &activity.Snapshot{ClientID: "client-42"}
	first, _ := alert.NoWorkout(s, now, alert.DefaultRules())
	second, _ := alert.NoWorkout(s, now.Add(time.Hour), alert.DefaultRules())
	if first.AlertID != second.AlertID {
		t.Fatalf("expected stable ids, got %s and %s", first.AlertID, second.AlertID)
	}
}

func TestNoWorkoutThresholds(t *testing.T) {
	rules := alert.DefaultRules()

	cases := []struct {
		name     string
		workouts []activity.WorkoutLog
		want     alert.Priority
		fires    bool
	}{
		{"yesterday", workedOut(1), "", false},
		{"two days", workedOut(2), "", false},
		{"three days", workedOut(3), alert.PriorityWarning, true},
		{"four days", workedOut(4), alert.PriorityWarning, true},
		{"five days", workedOut(5), alert.PriorityCritical, true},
		{"latest counts", workedOut(9, 1), "", false},
		{"never", nil, alert.PriorityCritical, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &activity.Snapshot{ClientID: "c1", ClientName: "Ann", Workouts: tc.workouts}
			a, ok := alert.NoWorkout(s, now, rules)
			if ok != tc.fires {
				t.Fatalf("expected fires=%v, got %v", tc.fires, ok)
			}
			if ok && a.Priority != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, a.Priority)
			}
			if ok && a.AlertID != "c1_no_workout" {
				t.Fatalf("unexpected alert id %s", a.AlertID)
			}
		})
	}
}

func TestNoWorkoutNeverLogged(t *testing.T) {
	s := &activity.Snapshot{ClientID: "c1"}
	a, ok := alert.NoWorkout(s, now, alert.DefaultRules())
	if !ok || a.DaysSince != alert.NeverDays {
		t.Fatalf("expected never alert, got %+v", a)
	}
	if a.Title != "Your client hasn't logged a workout yet" {
		t.Fatalf("unexpected title %q", a.Title)
	}
}

func TestAlertsForActivityOutsideWindow(t *testing.T) {
	rules := alert.DefaultRules()
	s := &activity.Snapshot{ClientID: "c1", LatestWorkout: daysAgo(500)}

	a, ok := alert.NoWorkout(s, now, rules)
	if !ok || a.DaysSince != 500 || a.Priority != alert.PriorityCritical {
		t.Fatalf("expected critical alert 500 days after the last workout, got %+v %v", a, ok)
	}
	if a.Title != "Your client hasn't worked out in 500 days" {
		t.Fatalf("unexpected title %q", a.Title)
	}

	a, ok = alert.Inactive(s, now, rules)
	if !ok || a.DaysSince != 500 {
		t.Fatalf("expected inactive alert, got %+v %v", a, ok)
	}
}

func TestMissedScheduled(t *testing.T) {
	rules := alert.DefaultRules()
	s := &activity.Snapshot{
		ClientID: "c1",
		Scheduled: []activity.ScheduledWorkout{
			{ScheduledID: "s1", WorkoutID: "w1", ScheduledFor: daysAgo(1)},
			{ScheduledID: "s2", WorkoutID: "w2", ScheduledFor: daysAgo(2)},
			{ScheduledID: "s3", WorkoutID: "w3", ScheduledFor: daysAgo(3)},
			{ScheduledID: "s4", WorkoutID: "w4", ScheduledFor: daysAgo(4)},
			{ScheduledID: "s5", WorkoutID: "w5", ScheduledFor: daysAgo(6)},
		},
		Workouts: []activity.WorkoutLog{{LogID: "l1", WorkoutID: "w2", CompletedAt: daysAgo(1)}},
	}

	alerts := alert.MissedScheduled(s, now, rules)
	if len(alerts) != rules.MaxMissedPerClient {
		t.Fatalf("expected %d alerts, got %d", rules.MaxMissedPerClient, len(alerts))
	}

	want := []struct {
		id       string
		priority alert.Priority
	}{
		{"c1_missed_s1", alert.PriorityWarning},
		{"c1_missed_s3", alert.PriorityCritical},
		{"c1_missed_s4", alert.PriorityCritical},
	}
	for i, w := range want {
		if alerts[i].AlertID != w.id || alerts[i].Priority != w.priority {
			t.Fatalf("alert %d: expected %s/%s, got %s/%s", i, w.id, w.priority, alerts[i].AlertID, alerts[i].Priority)
		}
	}
}

func TestMissedPriority(t *testing.T) {
	rules := alert.DefaultRules()
	cases := map[int]alert.Priority{
		0: alert.PriorityNotice,
		1: alert.PriorityWarning,
		2: alert.PriorityWarning,
		3: alert.PriorityCritical,
	}
	for days, want := range cases {
		if got := alert.MissedPriority(days, rules); got != want {
			t.Fatalf("%d days: expected %s, got %s", days, want, got)
		}
	}
}

func TestNutritionSlipping(t *testing.T) {
	rules := alert.DefaultRules()

	cases := []struct {
		name  string
		days  []int
		want  alert.Priority
		fires bool
	}{
		{"never logged", nil, "", false},
		{"recent", []int{2}, "", false},
		{"notice", []int{3}, alert.PriorityNotice, true},
		{"warning", []int{7}, alert.PriorityWarning, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &activity.Snapshot{ClientID: "c1"}
			for _, d := range tc.days {
				s.Nutrition = append(s.Nutrition, activity.NutritionLog{LogID: "n", LoggedAt: daysAgo(d)})
			}
			a, ok := alert.NutritionSlipping(s, now, rules)
			if ok != tc.fires {
				t.Fatalf("expected fires=%v, got %v", tc.fires, ok)
			}
			if ok && a.Priority != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, a.Priority)
			}
		})
	}
}

func TestInactive(t *testing.T) {
	rules := alert.DefaultRules()

	quiet := &activity.Snapshot{
		ClientID:  "c1",
		Workouts:  workedOut(20),
		Nutrition: []activity.NutritionLog{{LoggedAt: daysAgo(14)}},
	}
	if a, ok := alert.Inactive(quiet, now, rules); !ok || a.DaysSince != 14 {
		t.Fatalf("expected inactive after 14 days, got %+v %v", a, ok)
	}

	active := &activity.Snapshot{
		ClientID:  "c1",
		Workouts:  workedOut(20),
		Nutrition: []activity.NutritionLog{{LoggedAt: daysAgo(2)}},
	}
	if _, ok := alert.Inactive(active, now, rules); ok {
		t.Fatalf("recent nutrition log keeps the client active")
	}

	if _, ok := alert.Inactive(&activity.Snapshot{ClientID: "c1"}, now, rules); ok {
		t.Fatalf("clients with no activity are covered by the no workout rule")
	}
}

func TestSortAndSuppress(t *testing.T) {
	alerts := []alert.Alert{
		{AlertID: "b", Priority: alert.PriorityWarning, DaysSince: 3},
		{AlertID: "a", Priority: alert.PriorityNotice, DaysSince: 30},
		{AlertID: "d", Priority: alert.PriorityCritical, DaysSince: 5},
		{AlertID: "c", Priority: alert.PriorityCritical, DaysSince: 9},
		{AlertID: "e", Priority: alert.PriorityWarning, DaysSince: 3},
	}

	alerts = alert.Suppress(alerts, map[string]struct{}{"e": {}})
	alert.Sort(alerts)

	want := []string{"c", "d", "b", "a"}
	if len(alerts) != len(want) {
		t.Fatalf("expected %d alerts, got %d", len(want), len(alerts))
	}
	for i, id := range want {
		if alerts[i].AlertID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, alerts[i].AlertID)
		}
	}
}

func TestEvaluateUsesClientName(t *testing.T) {
	s := &activity.Snapshot{ClientID: "c1", ClientName: "Ann Lee", Workouts: workedOut(6)}
	alerts := alert.Evaluate(s, now, alert.DefaultRules())
	if len(alerts) != 1 {
		t.Fatalf("expected one alert, got %+v", alerts)
	}
	if alerts[0].Title != "Ann Lee hasn't worked out in 6 days" || alerts[0].ClientName != "Ann Lee" {
		t.Fatalf("unexpected alert %+v", alerts[0])
	}
}
