package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"eventcal/internal/caldate"
)

func TestTodayUsesLocation(t *testing.T) {
	c := &FixedClock{FixedNow: time.Date(2024, time.March, 1, 23, 30, 0, 0, time.UTC)}

	assert.Equal(t, caldate.New(2024, time.March, 1), Today(c, time.UTC))
	assert.Equal(t, caldate.New(2024, time.March, 2), Today(c, time.FixedZone("UTC+9", 9*60*60)))

	c.SetNow(time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, caldate.New(2024, time.March, 5), Today(c, time.UTC))
}
