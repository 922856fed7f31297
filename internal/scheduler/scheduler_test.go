package scheduler

import (
	"testing"
	"time"

	"aipulse/internal/config"
)

func TestNextFireSameDay(t *testing.T) {
	t.Parallel()
	d := NewDaily(config.ScheduleConfig{Hour: 9, Minute: 30})

	now := time.Date(2026, 8, 28, 7, 0, 0, 0, time.UTC)
	next := d.NextFire(now)
	want := time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("NextFire = %v, want %v", next, want)
	}
}

func TestNextFireRollsToTomorrow(t *testing.T) {
	t.Parallel()
	d := NewDaily(config.ScheduleConfig{Hour: 9, Minute: 0})

	now := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	next := d.NextFire(now)
	want := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("NextFire at exactly the fire time = %v, want %v", next, want)
	}

	late := time.Date(2026, 8, 28, 23, 59, 0, 0, time.UTC)
	if got := d.NextFire(late); !got.Equal(want) {
		t.Errorf("NextFire late evening = %v, want %v", got, want)
	}
}
