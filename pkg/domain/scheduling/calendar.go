package scheduling

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Month is the calendar viewport.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Direction of a calendar navigation.
type Direction int

const (
	Previous Direction = -1
	Next     Direction = 1
)

// Step moves the month by one in the given direction, wrapping years.
func (m Month) Step(d Direction) Month {
	if d == Next {
		return m.Next()
	}
	return m.Prev()
}

// Next is the following calendar month.
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// Prev is the preceding calendar month.
func (m Month) Prev() Month {
	if m.Month == time.January {
		return Month{Year: m.Year - 1, Month: time.December}
	}
	return Month{Year: m.Year, Month: m.Month - 1}
}

func (m Month) first() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// DaysIn is the number of days in the month.
func (m Month) DaysIn() int {
	return m.first().AddDate(0, 1, -1).Day()
}

// FirstWeekdayOffset is the number of empty cells before day 1 in a
// Monday-first week row.
func (m Month) FirstWeekdayOffset() int {
	return (int(m.first().Weekday()) + 6) % 7
}

// Date formats a day of the month as YYYY-MM-DD.
func (m Month) Date(day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", m.Year, int(m.Month), day)
}

// Contains reports whether a YYYY-MM-DD date falls in this month.
func (m Month) Contains(date string) bool {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return false
	}
	return t.Year() == m.Year && t.Month() == m.Month
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// DayState is the display class of a calendar day.
type DayState int

const (
	DayUnknown DayState = iota
	DayAvailable
	DaySunday
	DayPast
	DayNoSlots
)

// Selectable reports whether the day accepts a selection.
func (s DayState) Selectable() bool {
	return s == DayAvailable
}

// Classify decides how a date renders. Rules apply in order: missing record,
// available, sunday, past, and everything else as "no slots".
func Classify(avail AvailabilityMonth, date string) (DayState, string) {
	d, ok := avail.Day(date)
	switch {
	case !ok:
		return DayUnknown, "Sin información"
	case d.Available:
		return DayAvailable, fmt.Sprintf("%d horarios disponibles", d.TotalAvailable)
	case d.UnavailableReason == ReasonSunday:
		return DaySunday, "Domingo - día no laborable"
	case d.UnavailableReason == ReasonPast:
		return DayPast, "Fecha pasada"
	default:
		return DayNoSlots, "Sin horarios disponibles"
	}
}

// CalendarCell is one cell of the month grid. Padding cells have Day == 0.
type CalendarCell struct {
	Day      int
	Date     string
	State    DayState
	Tooltip  string
	Selected bool
}

// Padding reports whether the cell is an empty filler.
func (c CalendarCell) Padding() bool {
	return c.Day == 0
}

// Calendar lays the month out as Monday-first weeks of seven cells.
func Calendar(m Month, avail AvailabilityMonth, selected string) [][]CalendarCell {
	lead := m.FirstWeekdayOffset()
	days := m.DaysIn()

	cells := make([]CalendarCell, 0, lead+days+6)
	for i := 0; i < lead; i++ {
		cells = append(cells, CalendarCell{})
	}
	for day := 1; day <= days; day++ {
		date := m.Date(day)
		state, tip := Classify(avail, date)
		cells = append(cells, CalendarCell{
			Day:      day,
			Date:     date,
			State:    state,
			Tooltip:  tip,
			Selected: date == selected,
		})
	}
	for len(cells)%7 != 0 {
		cells = append(cells, CalendarCell{})
	}

	weeks := make([][]CalendarCell, 0, len(cells)/7)
	for i := 0; i < len(cells); i += 7 {
		weeks = append(weeks, cells[i:i+7])
	}
	return weeks
}
