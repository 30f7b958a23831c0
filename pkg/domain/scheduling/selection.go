package scheduling

// Selection is the calendar viewport and the chosen day and time.
// Time is only meaningful while Date is set and bookable.
type Selection struct {
	Displayed Month
	Date      string
	Time      string
}

// Clear drops the chosen day and time.
func (s *Selection) Clear() {
	s.Date = ""
	s.Time = ""
}

// Navigate moves the viewport one month and clears the selection.
func (s *Selection) Navigate(d Direction) {
	s.Displayed = s.Displayed.Step(d)
	s.Clear()
}

// SelectDate chooses a bookable day. Re-selecting the current day keeps the
// chosen time.
func (s *Selection) SelectDate(avail AvailabilityMonth, date string) bool {
	day, ok := avail.Day(date)
	if !ok || !day.Available {
		return false
	}
	if s.Date != date {
		s.Time = ""
	}
	s.Date = date
	return true
}

// SelectTime chooses an available slot of the selected day.
func (s *Selection) SelectTime(avail AvailabilityMonth, t string) bool {
	if s.Date == "" {
		return false
	}
	day, ok := avail.Day(s.Date)
	if !ok || !day.HasSlot(t) {
		return false
	}
	s.Time = t
	return true
}

// ShowSlots reports whether the slot picker should be visible.
func (s Selection) ShowSlots(avail AvailabilityMonth) bool {
	if s.Date == "" {
		return false
	}
	day, ok := avail.Day(s.Date)
	return ok && day.Available
}

// ComposedDateTime is "YYYY-MM-DD HH:MM:00", or empty until both parts are set.
func (s Selection) ComposedDateTime() string {
	if s.Date == "" || s.Time == "" {
		return ""
	}
	return s.Date + " " + s.Time + ":00"
}
