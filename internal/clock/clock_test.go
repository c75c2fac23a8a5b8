package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeClockAdvance(t *testing.T) {
	start := time.Date(2024, 1, 31, 23, 30, 0, 0, time.UTC)
	c := NewFakeClock(start)

	assert.Equal(t, start, c.Now())
	c.Advance(time.Hour)
	assert.Equal(t, start.Add(time.Hour), c.Now())
}

func TestToday(t *testing.T) {
	c := NewFakeClock(time.Date(2024, 2, 1, 17, 45, 12, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Today(c))
}

func TestWeekStart(t *testing.T) {
	monday := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	for _, day := range []time.Time{
		time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 12, 18, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 14, 23, 59, 0, 0, time.UTC),
	} {
		assert.Equal(t, monday, WeekStart(day), day.String())
	}
}
