package scheduling

import "sort"

// SlotState is the display class of a time slot.
type SlotState int

const (
	SlotAvailable SlotState = iota
	SlotOccupied
	SlotChosen
)

// Slot is one entry of a day's slot grid.
type Slot struct {
	Time  string
	State SlotState
}

// Clickable reports whether the slot accepts a selection.
func (s Slot) Clickable() bool {
	return s.State != SlotOccupied
}

// SlotGrid merges available and occupied slots into one ascending list.
// Lexicographic order is correct because all times are zero-padded HH:MM.
func SlotGrid(day DayAvailability, chosen string) []Slot {
	free := make(map[string]struct{}, len(day.AvailableSlots))
	for _, s := range day.AvailableSlots {
		free[s] = struct{}{}
	}

	seen := make(map[string]struct{}, len(day.AvailableSlots)+len(day.OccupiedSlots))
	times := make([]string, 0, len(day.AvailableSlots)+len(day.OccupiedSlots))
	for _, list := range [][]string{day.AvailableSlots, day.OccupiedSlots} {
		for _, s := range list {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			times = append(times, s)
		}
	}
	sort.Strings(times)

	grid := make([]Slot, 0, len(times))
	for _, t := range times {
		state := SlotOccupied
		if _, ok := free[t]; ok {
			state = SlotAvailable
			if t == chosen {
				state = SlotChosen
			}
		}
		grid = append(grid, Slot{Time: t, State: state})
	}
	return grid
}
