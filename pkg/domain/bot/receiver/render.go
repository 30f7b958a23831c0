package receiver

import (
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/napryag/tg_physio_bot/pkg/domain/bot/receiver/keyboards"
	"github.com/napryag/tg_physio_bot/pkg/domain/scheduling"
	"github.com/napryag/tg_physio_bot/pkg/utils/errs"
)

const helpText = "<b>Ayuda</b>\n\n" +
	"1. Inicie sesión con <code>/login correo contraseña</code>.\n" +
	"2. Pulse «Agendar cita», elija terapeuta, tipo y duración.\n" +
	"3. Elija un día disponible del calendario y una hora.\n" +
	"4. Complete el motivo de la consulta y envíe la cita.\n\n" +
	"/cancel vuelve al menú principal. /logout cierra la sesión."

// RenderText is the body of the live message for the chat's screen.
func RenderText(c *Chat, now time.Time) string {
	var b strings.Builder
	if n := c.takeNotice(); n != "" {
		b.WriteString("⚠️ " + html.EscapeString(n) + "\n\n")
	}

	switch c.Screen {
	case ScreenBooking:
		if c.Wizard != nil {
			renderWizard(&b, c)
			return b.String()
		}
	case ScreenMyAppointments:
		renderAppointments(&b, c)
		return b.String()
	case ScreenHelp:
		b.WriteString(helpText)
		return b.String()
	}

	name := c.FirstName
	if c.Auth.Valid(now) && c.Auth.Name != "" {
		name = c.Auth.Name
	}
	fmt.Fprintf(&b, "<b>¡Hola %s!</b>\nBienvenido a la clínica de fisioterapia.\n\n", html.EscapeString(name))
	if c.Auth.Valid(now) {
		b.WriteString("Elija una opción:")
	} else {
		b.WriteString("Para agendar una cita inicie sesión con <code>/login correo contraseña</code>.")
	}
	return b.String()
}

// RenderKeyboard is the inline keyboard for the chat's screen.
func RenderKeyboard(c *Chat, now time.Time) tgbotapi.InlineKeyboardMarkup {
	switch c.Screen {
	case ScreenBooking:
		if c.Wizard == nil {
			break
		}
		w := c.Wizard
		switch w.Step() {
		case scheduling.StepProviderType:
			return keyboards.ProviderTypeStep(c.Providers, w.Draft)
		case scheduling.StepDateTime:
			return keyboards.DateTimeStep(w)
		case scheduling.StepClinicalInfo:
			return keyboards.ClinicalStep(w.Draft, c.Awaiting, false)
		case scheduling.StepFailed:
			return keyboards.ClinicalStep(w.Draft, c.Awaiting, true)
		case scheduling.StepSubmitting:
			return tgbotapi.NewInlineKeyboardMarkup(
				tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⏳", keyboards.CbNoop)),
			)
		case scheduling.StepConfirmed:
			return keyboards.Confirmed()
		}
	case ScreenMyAppointments, ScreenHelp:
		return keyboards.BackToMain()
	}
	return keyboards.MainMenu(c.Auth.Valid(now))
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return html.EscapeString(s)
}

func renderWizard(b *strings.Builder, c *Chat) {
	w := c.Wizard
	d := w.Draft
	switch w.Step() {
	case scheduling.StepProviderType:
		b.WriteString("<b>Paso 1 de 3: terapeuta y tipo de cita</b>\n\n")
		fmt.Fprintf(b, "Terapeuta: %s\nTipo: %s\nDuración: %s min\n", orDash(d.ProviderName), orDash(d.Type.Title()), orDash(d.Duration))
		if len(c.Providers) == 0 {
			b.WriteString("\nCargando terapeutas…")
		}

	case scheduling.StepDateTime:
		b.WriteString("<b>Paso 2 de 3: fecha y hora</b>\n\n")
		fmt.Fprintf(b, "%s · %s · %s min\n", orDash(d.ProviderName), orDash(d.Type.Title()), orDash(d.Duration))
		fmt.Fprintf(b, "Mes: %s\n", keyboards.MonthTitle(w.Selection.Displayed))
		switch {
		case w.Fetcher.Loading():
			b.WriteString("\nCargando disponibilidad…\n")
		case w.Fetcher.Err() != nil:
			fmt.Fprintf(b, "\n❌ %s\n", html.EscapeString(errs.UserMessage(w.Fetcher.Err())))
		}
		if w.Selection.Date != "" {
			fmt.Fprintf(b, "\nDía: %s", w.Selection.Date)
			if w.Selection.Time != "" {
				fmt.Fprintf(b, "  Hora: %s", w.Selection.Time)
			} else {
				b.WriteString("\nElija una hora:")
			}
			b.WriteString("\n")
		}
		b.WriteString("\n[n] seleccionado · ✖ domingo · · pasado · ⛔ sin horarios · ? sin información")

	case scheduling.StepClinicalInfo, scheduling.StepFailed:
		b.WriteString("<b>Paso 3 de 3: información clínica</b>\n\n")
		fmt.Fprintf(b, "Cita: %s\nTerapeuta: %s\n", orDash(d.DateTime), orDash(d.ProviderName))
		fmt.Fprintf(b, "Escala de dolor: %s\n", orDash(d.PainScale))
		for _, f := range scheduling.ClinicalFields {
			fmt.Fprintf(b, "%s: %s\n", f.Title(), orDash(d.Get(f)))
		}
		if c.Awaiting != "" {
			fmt.Fprintf(b, "\n⌨️ Escriba «%s» y envíelo como mensaje.", c.Awaiting.Title())
		}
		if w.Step() == scheduling.StepFailed && w.SubmitErr() != nil {
			fmt.Fprintf(b, "\n\n❌ %s", html.EscapeString(errs.UserMessage(w.SubmitErr())))
		}

	case scheduling.StepSubmitting:
		b.WriteString("Enviando su cita…")

	case scheduling.StepConfirmed:
		fmt.Fprintf(b, "✅ <b>¡Cita agendada!</b>\n\n%s con %s\n%s (%s min)\n\nEn unos segundos verá sus citas.",
			html.EscapeString(d.Type.Title()), orDash(d.ProviderName), orDash(d.DateTime), orDash(d.Duration))
	}
}

func renderAppointments(b *strings.Builder, c *Chat) {
	b.WriteString("<b>📅 Mis citas</b>\n\n")
	if len(c.Appointments) == 0 {
		b.WriteString("No tiene citas agendadas.")
		return
	}
	for _, a := range c.Appointments {
		fmt.Fprintf(b, "• %s · %s · %s", orDash(a.DateTime), orDash(scheduling.AppointmentType(a.Type).Title()), orDash(a.ProviderName))
		if a.Status != "" {
			fmt.Fprintf(b, " (%s)", html.EscapeString(a.Status))
		}
		b.WriteString("\n")
	}
}
