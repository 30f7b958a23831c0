package scheduling

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayAvailability_DecodesWireNames(t *testing.T) {
	body := `{
		"2025-07-06": {"disponible": false, "motivo": "domingo", "horas_disponibles": [], "horas_ocupadas": [], "total_disponibles": 0},
		"2025-07-07": {"disponible": false, "motivo": "fecha_pasada"},
		"2025-07-08": {"disponible": true, "motivo": null, "horas_disponibles": ["09:00","10:00"], "horas_ocupadas": ["11:00"], "total_disponibles": 2},
		"2025-07-10": {"disponible": false, "motivo": "vacaciones"}
	}`

	var m AvailabilityMonth
	require.NoError(t, json.Unmarshal([]byte(body), &m))

	assert.Equal(t, ReasonSunday, m["2025-07-06"].UnavailableReason)
	assert.Equal(t, ReasonPast, m["2025-07-07"].UnavailableReason)
	assert.Equal(t, ReasonNone, m["2025-07-08"].UnavailableReason)
	assert.Equal(t, ReasonNoSlots, m["2025-07-10"].UnavailableReason)

	day := m["2025-07-08"]
	assert.True(t, day.Available)
	assert.Equal(t, []string{"09:00", "10:00"}, day.AvailableSlots)
	assert.Equal(t, []string{"11:00"}, day.OccupiedSlots)
	assert.Equal(t, 2, day.TotalAvailable)
}

func TestNormalize_KeepsSlotListsDisjoint(t *testing.T) {
	in := AvailabilityMonth{
		"2025-07-08": {
			Available:      true,
			AvailableSlots: []string{"10:00", "9:00", "11:00:00", "10:00"},
			OccupiedSlots:  []string{"11:00", "08:00"},
			TotalAvailable: 4,
		},
		"2025-07-06": {Available: false, UnavailableReason: ReasonSunday},
	}

	out := Normalize(in)

	day := out["2025-07-08"]
	assert.Equal(t, []string{"09:00", "10:00"}, day.AvailableSlots)
	assert.Equal(t, []string{"08:00", "11:00"}, day.OccupiedSlots)
	assert.Equal(t, 2, day.TotalAvailable)

	for date, d := range out {
		occupied := map[string]bool{}
		for _, s := range d.OccupiedSlots {
			occupied[s] = true
		}
		for _, s := range d.AvailableSlots {
			assert.Falsef(t, occupied[s], "%s: slot %s both available and occupied", date, s)
		}
	}

	// the input is left untouched
	assert.Len(t, in["2025-07-08"].AvailableSlots, 4)
}

func TestDayAvailability_HasSlot(t *testing.T) {
	day := julyAvailability()["2025-07-08"]
	assert.True(t, day.HasSlot("09:00"))
	assert.False(t, day.HasSlot("11:00"))

	closed := DayAvailability{Available: false, AvailableSlots: []string{"09:00"}}
	assert.False(t, closed.HasSlot("09:00"))
}

func TestSlotGrid(t *testing.T) {
	day := DayAvailability{
		Available:      true,
		AvailableSlots: []string{"09:00", "14:00"},
		OccupiedSlots:  []string{"10:00"},
	}

	grid := SlotGrid(day, "")
	times := make([]string, 0, len(grid))
	for _, s := range grid {
		times = append(times, s.Time)
	}
	assert.Equal(t, []string{"09:00", "10:00", "14:00"}, times)
	assert.Equal(t, SlotAvailable, grid[0].State)
	assert.Equal(t, SlotOccupied, grid[1].State)
	assert.False(t, grid[1].Clickable())

	chosen := SlotGrid(day, "14:00")
	assert.Equal(t, SlotChosen, chosen[2].State)
	assert.True(t, chosen[2].Clickable())

	// an occupied time never renders as chosen
	assert.Equal(t, SlotOccupied, SlotGrid(day, "10:00")[1].State)
}
