package keyboards

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/napryag/tg_physio_bot/pkg/api"
	"github.com/napryag/tg_physio_bot/pkg/domain/scheduling"
)

const (
	slotsPerRow     = 4
	typesPerRow     = 2
	providersPerRow = 1
)

var weekdays = [7]string{"Lu", "Ma", "Mi", "Ju", "Vi", "Sá", "Do"}

var months = [12]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// MonthTitle is "Julio 2025".
func MonthTitle(m scheduling.Month) string {
	return fmt.Sprintf("%s %d", months[m.Month-1], m.Year)
}

func button(text, data string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, data)
}

func marked(on bool, text string) string {
	if on {
		return "✅ " + text
	}
	return text
}

// MainMenu is the entry screen. Booking and the appointment list need a login.
func MainMenu(loggedIn bool) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(button("🩺 Agendar cita", CbBook)),
	}
	if loggedIn {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("📅 Mis citas", CbMy)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("❓ Ayuda", CbHelp)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// BackToMain is a single button returning to the main menu.
func BackToMain() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button("⬅️ Menú principal", CbMain)),
	)
}

// Confirmed offers the appointment list right away.
func Confirmed() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button("📅 Mis citas", CbMy)),
		tgbotapi.NewInlineKeyboardRow(button("⬅️ Menú principal", CbMain)),
	)
}

// Providers lists the clinic's therapists, marking the chosen one.
func Providers(providers []api.Provider, selectedID string) [][]tgbotapi.InlineKeyboardButton {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(providers))
	row := make([]tgbotapi.InlineKeyboardButton, 0, providersPerRow)
	for _, p := range providers {
		id := strconv.FormatInt(p.ID, 10)
		label := p.Name
		if p.Specialty != "" {
			label += " · " + p.Specialty
		}
		row = append(row, button(marked(id == selectedID, label), PProvider+id))
		if len(row) == providersPerRow {
			rows = append(rows, row)
			row = make([]tgbotapi.InlineKeyboardButton, 0, providersPerRow)
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

// Types lists appointment categories two per row.
func Types(selected scheduling.AppointmentType) [][]tgbotapi.InlineKeyboardButton {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, t := range scheduling.AppointmentTypes {
		row = append(row, button(marked(t == selected, t.Title()), PType+string(t)))
		if len(row) == typesPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

// Durations is one row of session lengths.
func Durations(selected string) []tgbotapi.InlineKeyboardButton {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(scheduling.Durations))
	for _, m := range scheduling.Durations {
		v := strconv.Itoa(m)
		row = append(row, button(marked(v == selected, v+" min"), PDuration+v))
	}
	return row
}

// ProviderTypeStep is the first wizard screen.
func ProviderTypeStep(providers []api.Provider, d scheduling.Draft) tgbotapi.InlineKeyboardMarkup {
	rows := Providers(providers, d.ProviderID)
	rows = append(rows, Types(d.Type)...)
	rows = append(rows, Durations(d.Duration))
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		button("⬅️ Menú", CbMain),
		button("Siguiente ➡️", CbNext),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// dayLabel marks a day by its state. Every real day carries a day: callback
// so that tapping an unavailable one can explain why.
func dayLabel(c scheduling.CalendarCell) string {
	n := strconv.Itoa(c.Day)
	if c.Selected {
		return "[" + n + "]"
	}
	switch c.State {
	case scheduling.DayAvailable:
		return n
	case scheduling.DayUnknown:
		return "?"
	case scheduling.DaySunday:
		return "✖"
	case scheduling.DayPast:
		return "·"
	default:
		return "⛔"
	}
}

// Calendar renders a Monday-first month with navigation and weekday header.
func Calendar(m scheduling.Month, weeks [][]scheduling.CalendarCell) [][]tgbotapi.InlineKeyboardButton {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(weeks)+2)
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		button("◀️", CbCalPrev),
		button(MonthTitle(m), CbNoop),
		button("▶️", CbCalNext),
	))

	header := make([]tgbotapi.InlineKeyboardButton, 0, 7)
	for _, w := range weekdays {
		header = append(header, button(w, CbNoop))
	}
	rows = append(rows, header)

	for _, week := range weeks {
		row := make([]tgbotapi.InlineKeyboardButton, 0, 7)
		for _, c := range week {
			if c.Padding() {
				row = append(row, button(" ", CbNoop))
				continue
			}
			row = append(row, button(dayLabel(c), PDay+c.Date))
		}
		rows = append(rows, row)
	}
	return rows
}

// Slots renders a day's grid. Occupied slots stay visible but inert.
func Slots(slots []scheduling.Slot) [][]tgbotapi.InlineKeyboardButton {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, s := range slots {
		var b tgbotapi.InlineKeyboardButton
		switch s.State {
		case scheduling.SlotOccupied:
			b = button("⛔ "+s.Time, CbNoop)
		case scheduling.SlotChosen:
			b = button("✅ "+s.Time, PSlot+s.Time)
		default:
			b = button(s.Time, PSlot+s.Time)
		}
		row = append(row, b)
		if len(row) == slotsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

// DateTimeStep is the second wizard screen.
func DateTimeStep(w *scheduling.Wizard) tgbotapi.InlineKeyboardMarkup {
	rows := Calendar(w.Selection.Displayed, w.Calendar())
	rows = append(rows, Slots(w.Slots())...)
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		button("⬅️ Atrás", CbBack),
		button("Siguiente ➡️", CbNext),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// PainScale is 0 to 10 over two rows plus a clear button.
func PainScale(selected string) [][]tgbotapi.InlineKeyboardButton {
	var first, second []tgbotapi.InlineKeyboardButton
	for n := 0; n <= 10; n++ {
		v := strconv.Itoa(n)
		label := v
		if v == selected {
			label = "[" + v + "]"
		}
		if n <= 5 {
			first = append(first, button(label, PPain+v))
		} else {
			second = append(second, button(label, PPain+v))
		}
	}
	second = append(second, button("✖", PPain+"-1"))
	return [][]tgbotapi.InlineKeyboardButton{first, second}
}

// ClinicalFields has one button per free text field, ticked once filled.
func ClinicalFields(d scheduling.Draft, awaiting scheduling.Field) [][]tgbotapi.InlineKeyboardButton {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(scheduling.ClinicalFields))
	for _, f := range scheduling.ClinicalFields {
		label := "✏️ " + f.Title()
		switch {
		case f == awaiting:
			label = "⌨️ " + f.Title()
		case d.Get(f) != "":
			label = "✅ " + f.Title()
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button(label, PField+string(f))))
	}
	return rows
}

// ClinicalStep is the third wizard screen. After a failed submission the
// same screen offers a retry.
func ClinicalStep(d scheduling.Draft, awaiting scheduling.Field, failed bool) tgbotapi.InlineKeyboardMarkup {
	rows := PainScale(d.PainScale)
	rows = append(rows, ClinicalFields(d, awaiting)...)
	submit := "📨 Agendar cita"
	if failed {
		submit = "🔁 Reintentar"
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		button("⬅️ Atrás", CbBack),
		button(submit, CbSubmit),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
