package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelection_BlockedDayIsIgnored(t *testing.T) {
	avail := julyAvailability()
	s := Selection{Displayed: Month{2025, time.July}}

	for _, date := range []string{"2025-07-06", "2025-07-07", "2025-07-10", "2025-07-15"} {
		assert.False(t, s.SelectDate(avail, date), date)
		assert.Empty(t, s.Date)
	}
	assert.False(t, s.ShowSlots(avail))
}

func TestSelection_ReselectKeepsTime(t *testing.T) {
	avail := julyAvailability()
	s := Selection{Displayed: Month{2025, time.July}}

	require.True(t, s.SelectDate(avail, "2025-07-08"))
	require.True(t, s.SelectTime(avail, "10:00"))

	require.True(t, s.SelectDate(avail, "2025-07-08"))
	assert.Equal(t, "2025-07-08", s.Date)
	assert.Equal(t, "10:00", s.Time)

	require.True(t, s.SelectDate(avail, "2025-07-09"))
	assert.Empty(t, s.Time)
}

func TestSelection_TimeMustBeAvailable(t *testing.T) {
	avail := julyAvailability()
	s := Selection{}

	assert.False(t, s.SelectTime(avail, "09:00"), "no date selected")

	require.True(t, s.SelectDate(avail, "2025-07-08"))
	assert.False(t, s.SelectTime(avail, "11:00"), "occupied")
	assert.False(t, s.SelectTime(avail, "17:00"), "not in grid")
	assert.Empty(t, s.ComposedDateTime())

	require.True(t, s.SelectTime(avail, "09:00"))
	assert.Equal(t, "2025-07-08 09:00:00", s.ComposedDateTime())
}

func TestSelection_NavigateClears(t *testing.T) {
	avail := julyAvailability()
	s := Selection{Displayed: Month{2025, time.July}}
	require.True(t, s.SelectDate(avail, "2025-07-08"))
	require.True(t, s.SelectTime(avail, "09:00"))

	s.Navigate(Next)
	assert.Equal(t, Month{2025, time.August}, s.Displayed)
	assert.Empty(t, s.Date)
	assert.Empty(t, s.Time)
}
