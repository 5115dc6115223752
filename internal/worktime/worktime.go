// Package worktime computes elapsed work time for requests whose timer can be
// paused and resumed. Nothing here touches storage; callers pass the stored
// counters and the current instant.
package worktime

import (
	"fmt"
	"time"
)

// Elapsed returns the total worked seconds. A running timer adds the time since
// startedAt; a clock that reads earlier than startedAt adds nothing.
func Elapsed(workedSeconds int64, running bool, startedAt *time.Time, now time.Time) int64 {
	if workedSeconds < 0 {
		workedSeconds = 0
	}
	if !running || startedAt == nil {
		return workedSeconds
	}
	delta := int64(now.Sub(*startedAt) / time.Second)
	if delta < 0 {
		delta = 0
	}
	return workedSeconds + delta
}

// Format renders seconds as HH:MM:SS. Hours are not wrapped at 24.
func Format(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Snapshot is the read-time view of a request timer. It is never persisted.
type Snapshot struct {
	Seconds   int64  `json:"seconds"`
	Formatted string `json:"formatted"`
	Running   bool   `json:"running"`
}

// Snap builds a Snapshot at now.
func Snap(workedSeconds int64, running bool, startedAt *time.Time, now time.Time) Snapshot {
	secs := Elapsed(workedSeconds, running, startedAt, now)
	return Snapshot{Seconds: secs, Formatted: Format(secs), Running: running && startedAt != nil}
}

// MonthWindow returns the half-open interval [start, end) covering the month.
func MonthWindow(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// PreviousMonth returns the calendar month before the one containing t.
func PreviousMonth(t time.Time) (int, time.Month) {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	prev := first.AddDate(0, -1, 0)
	return prev.Year(), prev.Month()
}
