package scheduling

import (
	"context"
	"time"
)

func julyAvailability() AvailabilityMonth {
	return AvailabilityMonth{
		"2025-07-06": {Available: false, UnavailableReason: ReasonSunday},
		"2025-07-07": {Available: false, UnavailableReason: ReasonPast},
		"2025-07-08": {
			Available:      true,
			AvailableSlots: []string{"09:00", "10:00"},
			OccupiedSlots:  []string{"11:00"},
			TotalAvailable: 2,
		},
		"2025-07-09": {
			Available:      true,
			AvailableSlots: []string{"14:00", "09:00"},
			OccupiedSlots:  []string{"10:00"},
			TotalAvailable: 2,
		},
		"2025-07-10": {Available: false, UnavailableReason: ReasonNoSlots, OccupiedSlots: []string{"09:00"}},
	}
}

type stubSource struct {
	calls int
	month AvailabilityMonth
	err   error
}

func (s *stubSource) FetchAvailability(_ context.Context, _ int64, _ time.Month, _, _ int) (AvailabilityMonth, error) {
	s.calls++
	return s.month, s.err
}

var july2025 = time.Date(2025, time.July, 1, 12, 0, 0, 0, time.UTC)

// wizardAtDateStep returns a wizard on step two with July 2025 loaded.
func wizardAtDateStep() *Wizard {
	w := NewWizard(july2025)
	_ = w.SetProvider("7", "Ana")
	_ = w.SetType(TypeFollowUp)
	_ = w.Next()
	t, _ := w.BeginFetch()
	w.CompleteFetch(t, julyAvailability(), nil)
	return w
}
