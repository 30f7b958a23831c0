package scheduling

import (
	"strconv"
	"strings"
	"time"

	"github.com/napryag/tg_physio_bot/pkg/utils/errs"
)

// Step is a state of the booking wizard.
type Step int

const (
	StepProviderType Step = iota
	StepDateTime
	StepClinicalInfo
	StepSubmitting
	StepConfirmed
	StepFailed
)

func (s Step) String() string {
	switch s {
	case StepProviderType:
		return "provider_type"
	case StepDateTime:
		return "date_time"
	case StepClinicalInfo:
		return "clinical_info"
	case StepSubmitting:
		return "submitting"
	case StepConfirmed:
		return "confirmed"
	case StepFailed:
		return "failed"
	}
	return "unknown"
}

var (
	ErrStepOneIncomplete = errs.Input("Seleccione un terapeuta y el tipo de cita")
	ErrNoDateTime        = errs.Input("Seleccione una fecha y una hora")
	ErrNoMotive          = errs.Input("Indique el motivo de la consulta")
	ErrInFlight          = errs.Input("La cita ya se está enviando")
	ErrWrongStep         = errs.Input("Esta acción no está disponible ahora")
)

// Wizard is one booking flow: three forward-gated steps followed by
// submission. Back is always allowed except while submitting.
type Wizard struct {
	step      Step
	Draft     Draft
	Selection Selection
	Fetcher   Fetcher
	submitErr error
}

// NewWizard opens a wizard with the calendar on the month of now.
func NewWizard(now time.Time) *Wizard {
	return &Wizard{
		step:      StepProviderType,
		Draft:     Draft{Duration: strconv.Itoa(DefaultDuration)},
		Selection: Selection{Displayed: MonthOf(now)},
	}
}

// Step is the current state.
func (w *Wizard) Step() Step { return w.step }

// SubmitErr is the error of the last failed submission.
func (w *Wizard) SubmitErr() error { return w.submitErr }

func (w *Wizard) editable() bool {
	return w.step == StepClinicalInfo || w.step == StepFailed
}

// SetProvider records the provider chosen on step one.
func (w *Wizard) SetProvider(id, name string) error {
	if w.step != StepProviderType {
		return ErrWrongStep
	}
	if id != w.Draft.ProviderID {
		w.invalidateCalendar()
	}
	w.Draft.ProviderID = id
	w.Draft.ProviderName = name
	return nil
}

// SetType records the appointment type chosen on step one.
func (w *Wizard) SetType(t AppointmentType) error {
	if w.step != StepProviderType {
		return ErrWrongStep
	}
	w.Draft.Type = t
	return nil
}

// SetDuration records the session length chosen on step one.
func (w *Wizard) SetDuration(minutes int) error {
	if w.step != StepProviderType {
		return ErrWrongStep
	}
	v := strconv.Itoa(minutes)
	if v != w.Draft.Duration {
		w.invalidateCalendar()
	}
	w.Draft.Duration = v
	return nil
}

// invalidateCalendar clears the selection before any re-fetch can resolve.
func (w *Wizard) invalidateCalendar() {
	w.Selection.Clear()
	w.Draft.DateTime = ""
	w.Fetcher.Reset()
}

// Navigate moves the calendar one month.
func (w *Wizard) Navigate(d Direction) error {
	if w.step != StepDateTime {
		return ErrWrongStep
	}
	w.Selection.Navigate(d)
	w.Draft.DateTime = ""
	w.Fetcher.Reset()
	return nil
}

// FetchKey is the availability the date step currently needs.
func (w *Wizard) FetchKey() FetchKey {
	id, _ := strconv.ParseInt(strings.TrimSpace(w.Draft.ProviderID), 10, 64)
	dur, _ := strconv.Atoi(w.Draft.Duration)
	return FetchKey{ProviderID: id, Month: w.Selection.Displayed, Duration: dur}
}

// NeedsFetch reports whether the date step shows data for a stale key and
// no request for the current key is outstanding.
func (w *Wizard) NeedsFetch() bool {
	if w.step != StepDateTime {
		return false
	}
	key := w.FetchKey()
	if w.Fetcher.Loading() && w.Fetcher.Key() == key {
		return false
	}
	return !w.Fetcher.Settled(key)
}

// BeginFetch opens a fetch for the current key.
func (w *Wizard) BeginFetch() (Ticket, error) {
	return w.Fetcher.Begin(w.FetchKey())
}

// CompleteFetch applies a response; stale responses are dropped.
func (w *Wizard) CompleteFetch(t Ticket, month AvailabilityMonth, err error) bool {
	if t.Key != w.FetchKey() {
		return false
	}
	return w.Fetcher.Complete(t, month, err)
}

// SelectDate picks a calendar day. Unavailable days are ignored.
func (w *Wizard) SelectDate(date string) bool {
	if w.step != StepDateTime {
		return false
	}
	before := w.Selection.Time
	if !w.Selection.SelectDate(w.Fetcher.Month(), date) {
		return false
	}
	if w.Selection.Time != before {
		w.Draft.DateTime = ""
	}
	return true
}

// SelectTime picks a slot of the selected day and composes the datetime.
func (w *Wizard) SelectTime(t string) (string, bool) {
	if w.step != StepDateTime {
		return "", false
	}
	if !w.Selection.SelectTime(w.Fetcher.Month(), t) {
		return "", false
	}
	w.Draft.DateTime = w.Selection.ComposedDateTime()
	return w.Draft.DateTime, true
}

// ShowSlots reports whether the slot picker is visible.
func (w *Wizard) ShowSlots() bool {
	return w.step == StepDateTime && w.Selection.ShowSlots(w.Fetcher.Month())
}

// Calendar lays out the displayed month.
func (w *Wizard) Calendar() [][]CalendarCell {
	return Calendar(w.Selection.Displayed, w.Fetcher.Month(), w.Selection.Date)
}

// Slots lays out the selected day's slot grid.
func (w *Wizard) Slots() []Slot {
	if !w.ShowSlots() {
		return nil
	}
	day, _ := w.Fetcher.Month().Day(w.Selection.Date)
	return SlotGrid(day, w.Selection.Time)
}

// SetField fills a free text field of the clinical step.
func (w *Wizard) SetField(f Field, value string) error {
	if !w.editable() {
		return ErrWrongStep
	}
	if !w.Draft.set(f, strings.TrimSpace(value)) {
		return errs.Input("Campo desconocido").Arg("field", string(f))
	}
	return nil
}

// SetPainScale records a 0-10 pain rating; a negative value clears it.
func (w *Wizard) SetPainScale(n int) error {
	if !w.editable() {
		return ErrWrongStep
	}
	if n > 10 {
		return errs.Input("La escala de dolor va de 0 a 10")
	}
	if n < 0 {
		w.Draft.PainScale = ""
		return nil
	}
	w.Draft.PainScale = strconv.Itoa(n)
	return nil
}

// Next advances one step when the current step's required fields are set.
func (w *Wizard) Next() error {
	switch w.step {
	case StepProviderType:
		if strings.TrimSpace(w.Draft.ProviderID) == "" || w.Draft.Type == "" {
			return ErrStepOneIncomplete
		}
		w.step = StepDateTime
		return nil
	case StepDateTime:
		if w.Draft.DateTime == "" {
			return ErrNoDateTime
		}
		w.step = StepClinicalInfo
		return nil
	}
	return ErrWrongStep
}

// Back returns one step. It reports false on the first step and while a
// submission is in flight or confirmed.
func (w *Wizard) Back() bool {
	switch w.step {
	case StepDateTime:
		w.step = StepProviderType
	case StepClinicalInfo, StepFailed:
		w.step = StepDateTime
		w.submitErr = nil
	default:
		return false
	}
	return true
}

// BeginSubmit validates the draft and moves to Submitting. Only one
// submission may be in flight.
func (w *Wizard) BeginSubmit() (BookingRequest, error) {
	if w.step == StepSubmitting {
		return BookingRequest{}, ErrInFlight
	}
	if !w.editable() {
		return BookingRequest{}, ErrWrongStep
	}
	if strings.TrimSpace(w.Draft.Motive) == "" {
		return BookingRequest{}, ErrNoMotive
	}
	req, err := BuildRequest(w.Draft)
	if err != nil {
		return BookingRequest{}, err
	}
	w.step = StepSubmitting
	w.submitErr = nil
	return req, nil
}

// FinishSubmit records the outcome of the in-flight submission. On failure
// the draft is kept so the user can retry.
func (w *Wizard) FinishSubmit(err error) {
	if w.step != StepSubmitting {
		return
	}
	if err != nil {
		w.step = StepFailed
		w.submitErr = err
		return
	}
	w.step = StepConfirmed
}
