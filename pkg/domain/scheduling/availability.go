package scheduling

import (
	"encoding/json"
	"sort"
	"strings"
)

// Reason explains why a day cannot be booked.
type Reason string

const (
	ReasonNone    Reason = ""
	ReasonSunday  Reason = "sunday"
	ReasonPast    Reason = "pastDate"
	ReasonNoSlots Reason = "noSlots"
)

// UnmarshalJSON accepts the backend's spellings of the reason.
func (r *Reason) UnmarshalJSON(b []byte) error {
	var raw *string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		*r = ReasonNone
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(*raw)) {
	case "":
		*r = ReasonNone
	case "domingo", "sunday":
		*r = ReasonSunday
	case "fecha_pasada", "pasado", "pastdate", "past_date", "past":
		*r = ReasonPast
	default:
		*r = ReasonNoSlots
	}
	return nil
}

// DayAvailability is one day of an availability response.
type DayAvailability struct {
	Available         bool     `json:"disponible"`
	UnavailableReason Reason   `json:"motivo"`
	AvailableSlots    []string `json:"horas_disponibles"`
	OccupiedSlots     []string `json:"horas_ocupadas"`
	TotalAvailable    int      `json:"total_disponibles"`
}

// HasSlot reports whether t can be booked on this day.
func (d DayAvailability) HasSlot(t string) bool {
	if !d.Available {
		return false
	}
	for _, s := range d.AvailableSlots {
		if s == t {
			return true
		}
	}
	return false
}

// AvailabilityMonth maps YYYY-MM-DD to the day's availability. A value is
// replaced wholesale on every fetch and never edited in place.
type AvailabilityMonth map[string]DayAvailability

// Day looks up a date.
func (m AvailabilityMonth) Day(date string) (DayAvailability, bool) {
	d, ok := m[date]
	return d, ok
}

// Normalize returns a copy with HH:MM slots sorted ascending, occupied slots
// removed from the available list and the available count recomputed.
func Normalize(in AvailabilityMonth) AvailabilityMonth {
	out := make(AvailabilityMonth, len(in))
	for date, d := range in {
		occupied := uniqueSorted(d.OccupiedSlots)
		taken := make(map[string]struct{}, len(occupied))
		for _, s := range occupied {
			taken[s] = struct{}{}
		}

		available := make([]string, 0, len(d.AvailableSlots))
		for _, s := range uniqueSorted(d.AvailableSlots) {
			if _, ok := taken[s]; ok {
				continue
			}
			available = append(available, s)
		}

		reason := d.UnavailableReason
		if d.Available {
			reason = ReasonNone
		}
		out[date] = DayAvailability{
			Available:         d.Available,
			UnavailableReason: reason,
			AvailableSlots:    available,
			OccupiedSlots:     occupied,
			TotalAvailable:    len(available),
		}
	}
	return out
}

func uniqueSorted(slots []string) []string {
	seen := make(map[string]struct{}, len(slots))
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		s = clockHHMM(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// clockHHMM trims "09:00:00" to "09:00" and pads "9:00" to "09:00".
func clockHHMM(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 8 && s[5] == ':' {
		s = s[:5]
	}
	if len(s) == 4 && s[1] == ':' {
		s = "0" + s
	}
	return s
}
