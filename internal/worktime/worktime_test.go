package worktime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestElapsed(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		worked  int64
		running bool
		started *time.Time
		now     time.Time
		want    int64
	}{
		{"stopped returns counter", 120, false, nil, t0.Add(time.Hour), 120},
		{"stopped ignores stale start", 120, false, &t0, t0.Add(time.Hour), 120},
		{"running adds delta", 3600, true, &t0, t0.Add(30 * time.Minute), 5400},
		{"clock skew clamps to zero", 10, true, &t0, t0.Add(-time.Minute), 10},
		{"sub-second truncated", 0, true, &t0, t0.Add(1500 * time.Millisecond), 1},
		{"running without start", 7, true, nil, t0, 7},
		{"negative counter floors", -5, false, nil, t0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Elapsed(tt.worked, tt.running, tt.started, tt.now))
		})
	}
}

func TestElapsed_MonotonicWhileRunning(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := Elapsed(100, true, &t0, t0)
	for i := 1; i <= 50; i++ {
		now := t0.Add(time.Duration(i*37) * time.Second)
		got := Elapsed(100, true, &t0, now)
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
}

func TestElapsed_ConstantWhilePaused(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	a := Elapsed(900, false, nil, t0)
	b := Elapsed(900, false, nil, t0.Add(72*time.Hour))
	assert.Equal(t, a, b)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "00:00:00", Format(0))
	assert.Equal(t, "00:00:59", Format(59))
	assert.Equal(t, "01:30:00", Format(5400))
	assert.Equal(t, "27:46:40", Format(100000))
	assert.Equal(t, "120:00:01", Format(432001))
	assert.Equal(t, "00:00:00", Format(-30))
}

func TestSnap(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	s := Snap(60, true, &t0, t0.Add(time.Minute))
	assert.Equal(t, Snapshot{Seconds: 120, Formatted: "00:02:00", Running: true}, s)
}

func TestMonthWindow(t *testing.T) {
	start, end := MonthWindow(2024, time.December, nil)
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestPreviousMonth(t *testing.T) {
	y, m := PreviousMonth(time.Date(2025, 1, 1, 0, 15, 0, 0, time.UTC))
	assert.Equal(t, 2024, y)
	assert.Equal(t, time.December, m)

	y, m = PreviousMonth(time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, 2025, y)
	assert.Equal(t, time.February, m)
}
