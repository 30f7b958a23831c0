package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/napryag/tg_physio_bot/pkg/utils/errs"
)

func TestWizard_HappyPath(t *testing.T) {
	w := wizardAtDateStep()
	require.Equal(t, StepDateTime, w.Step())

	require.True(t, w.SelectDate("2025-07-08"))
	assert.True(t, w.ShowSlots())

	dt, ok := w.SelectTime("09:00")
	require.True(t, ok)
	assert.Equal(t, "2025-07-08 09:00:00", dt)

	require.NoError(t, w.Next())
	require.Equal(t, StepClinicalInfo, w.Step())

	require.NoError(t, w.SetField(FieldMotive, "Seguimiento"))
	require.NoError(t, w.SetPainScale(4))

	req, err := w.BeginSubmit()
	require.NoError(t, err)
	assert.Equal(t, StepSubmitting, w.Step())
	assert.Equal(t, int64(7), req.ProviderID)
	assert.Equal(t, 60, req.Duration)
	assert.Equal(t, "seguimiento", req.Type)
	assert.Equal(t, "2025-07-08 09:00:00", req.DateTime)
	assert.Equal(t, "Seguimiento", req.Motive)
	require.NotNil(t, req.PainScale)
	assert.Equal(t, 4, *req.PainScale)

	w.FinishSubmit(nil)
	assert.Equal(t, StepConfirmed, w.Step())
}

func TestWizard_StepOneGate(t *testing.T) {
	w := NewWizard(july2025)
	assert.Equal(t, "60", w.Draft.Duration)

	err := w.Next()
	assert.ErrorIs(t, err, ErrStepOneIncomplete)
	assert.Equal(t, StepProviderType, w.Step())

	require.NoError(t, w.SetProvider("7", "Ana"))
	assert.ErrorIs(t, w.Next(), ErrStepOneIncomplete)
	assert.Equal(t, StepProviderType, w.Step())

	require.NoError(t, w.SetType(TypeEvaluation))
	require.NoError(t, w.Next())
	assert.Equal(t, StepDateTime, w.Step())
}

func TestWizard_DateStepGate(t *testing.T) {
	w := wizardAtDateStep()
	assert.ErrorIs(t, w.Next(), ErrNoDateTime)
	assert.Equal(t, StepDateTime, w.Step())

	require.True(t, w.SelectDate("2025-07-08"))
	assert.ErrorIs(t, w.Next(), ErrNoDateTime)
	assert.Equal(t, StepDateTime, w.Step())
}

func TestWizard_SubmitRequiresMotive(t *testing.T) {
	w := wizardAtDateStep()
	w.SelectDate("2025-07-08")
	w.SelectTime("10:00")
	require.NoError(t, w.Next())

	_, err := w.BeginSubmit()
	assert.ErrorIs(t, err, ErrNoMotive)
	assert.Equal(t, StepClinicalInfo, w.Step())
	assert.Equal(t, errs.KindInput, errs.KindOf(err))

	require.NoError(t, w.SetField(FieldMotive, "   "))
	_, err = w.BeginSubmit()
	assert.ErrorIs(t, err, ErrNoMotive)
}

func TestWizard_SingleSubmissionInFlight(t *testing.T) {
	w := wizardAtDateStep()
	w.SelectDate("2025-07-08")
	w.SelectTime("10:00")
	require.NoError(t, w.Next())
	require.NoError(t, w.SetField(FieldMotive, "Dolor lumbar"))

	_, err := w.BeginSubmit()
	require.NoError(t, err)

	_, err = w.BeginSubmit()
	assert.ErrorIs(t, err, ErrInFlight)
	assert.False(t, w.Back())
	assert.Equal(t, StepSubmitting, w.Step())
}

func TestWizard_FailureKeepsDraft(t *testing.T) {
	w := wizardAtDateStep()
	w.SelectDate("2025-07-08")
	w.SelectTime("10:00")
	require.NoError(t, w.Next())
	require.NoError(t, w.SetField(FieldMotive, "Dolor lumbar"))
	require.NoError(t, w.SetField(FieldNotes, "Traer estudios"))

	_, err := w.BeginSubmit()
	require.NoError(t, err)

	backendErr := errs.New("backend").Kind(errs.KindServer).User("Horario ocupado")
	w.FinishSubmit(backendErr)

	assert.Equal(t, StepFailed, w.Step())
	assert.Equal(t, backendErr, w.SubmitErr())
	assert.Equal(t, "Dolor lumbar", w.Draft.Motive)
	assert.Equal(t, "Traer estudios", w.Draft.Notes)
	assert.Equal(t, "2025-07-08 10:00:00", w.Draft.DateTime)

	// retry from the failed state
	_, err = w.BeginSubmit()
	require.NoError(t, err)
	w.FinishSubmit(nil)
	assert.Equal(t, StepConfirmed, w.Step())
}

func TestWizard_BackIsAlwaysAllowed(t *testing.T) {
	w := wizardAtDateStep()
	w.SelectDate("2025-07-08")
	w.SelectTime("09:00")
	require.NoError(t, w.Next())

	assert.True(t, w.Back())
	assert.Equal(t, StepDateTime, w.Step())
	assert.Equal(t, "2025-07-08 09:00:00", w.Draft.DateTime)

	assert.True(t, w.Back())
	assert.Equal(t, StepProviderType, w.Step())
	assert.False(t, w.Back())
}

func TestWizard_ProviderChangeClearsSelection(t *testing.T) {
	w := wizardAtDateStep()
	w.SelectDate("2025-07-08")
	w.SelectTime("09:00")
	require.True(t, w.Back())

	require.NoError(t, w.SetProvider("9", "Luis"))
	assert.Empty(t, w.Selection.Date)
	assert.Empty(t, w.Selection.Time)
	assert.Empty(t, w.Draft.DateTime)
	assert.Nil(t, w.Fetcher.Month())

	require.NoError(t, w.Next())
	assert.True(t, w.NeedsFetch())
}

func TestWizard_SameProviderKeepsSelection(t *testing.T) {
	w := wizardAtDateStep()
	w.SelectDate("2025-07-08")
	w.SelectTime("09:00")
	require.True(t, w.Back())

	require.NoError(t, w.SetProvider("7", "Ana"))
	assert.Equal(t, "2025-07-08", w.Selection.Date)
	require.NoError(t, w.Next())
	assert.False(t, w.NeedsFetch())
}

func TestWizard_DurationChangeClearsSelection(t *testing.T) {
	w := wizardAtDateStep()
	w.SelectDate("2025-07-08")
	w.SelectTime("09:00")
	require.True(t, w.Back())

	require.NoError(t, w.SetDuration(90))
	assert.Equal(t, "90", w.Draft.Duration)
	assert.Empty(t, w.Selection.Date)
	assert.Empty(t, w.Selection.Time)
	assert.Empty(t, w.Draft.DateTime)
}

func TestWizard_NavigationClearsSelectionBeforeFetch(t *testing.T) {
	w := wizardAtDateStep()

	for _, dir := range []Direction{Next, Previous, Previous, Next, Next} {
		w.SelectDate(firstAvailable(w))
		if w.Selection.Date != "" {
			w.SelectTime(w.Fetcher.Month()[w.Selection.Date].AvailableSlots[0])
		}

		require.NoError(t, w.Navigate(dir))
		assert.Empty(t, w.Selection.Date)
		assert.Empty(t, w.Selection.Time)
		assert.Empty(t, w.Draft.DateTime)
		assert.True(t, w.NeedsFetch())

		tk, err := w.BeginFetch()
		require.NoError(t, err)
		assert.False(t, w.NeedsFetch())
		w.CompleteFetch(tk, shiftAvailability(w.Selection.Displayed), nil)
	}
}

func TestWizard_NavigationForgetsPreviousMonth(t *testing.T) {
	w := wizardAtDateStep()

	require.NoError(t, w.Navigate(Next))
	assert.Equal(t, time.August, w.Selection.Displayed.Month)
	assert.Nil(t, w.Fetcher.Month())

	assert.False(t, w.SelectDate("2025-07-08"))
	_, ok := w.SelectTime("09:00")
	assert.False(t, ok)
	assert.Empty(t, w.Selection.Date)
	assert.Empty(t, w.Draft.DateTime)
}

func TestWizard_StaleResponseIsDropped(t *testing.T) {
	w := wizardAtDateStep()

	require.NoError(t, w.Navigate(Next))
	august, err := w.BeginFetch()
	require.NoError(t, err)

	require.NoError(t, w.Navigate(Next))
	september, err := w.BeginFetch()
	require.NoError(t, err)

	assert.True(t, w.CompleteFetch(september, shiftAvailability(september.Key.Month), nil))
	assert.False(t, w.CompleteFetch(august, shiftAvailability(august.Key.Month), nil))

	_, ok := w.Fetcher.Month().Day("2025-09-02")
	assert.True(t, ok)
	_, ok = w.Fetcher.Month().Day("2025-08-05")
	assert.False(t, ok)
}

func TestWizard_SelectionIgnoredOnOtherSteps(t *testing.T) {
	w := NewWizard(july2025)
	assert.False(t, w.SelectDate("2025-07-08"))
	_, ok := w.SelectTime("09:00")
	assert.False(t, ok)
	assert.ErrorIs(t, w.Navigate(Next), ErrWrongStep)
	assert.ErrorIs(t, w.SetField(FieldMotive, "x"), ErrWrongStep)
}

func TestWizard_PainScaleBounds(t *testing.T) {
	w := wizardAtDateStep()
	w.SelectDate("2025-07-08")
	w.SelectTime("09:00")
	require.NoError(t, w.Next())

	assert.Error(t, w.SetPainScale(11))
	require.NoError(t, w.SetPainScale(0))
	assert.Equal(t, "0", w.Draft.PainScale)
	require.NoError(t, w.SetPainScale(-1))
	assert.Empty(t, w.Draft.PainScale)
}

func TestFetcher_NoProviderFailsFast(t *testing.T) {
	src := &stubSource{}
	var f Fetcher

	err := f.Fetch(context.Background(), src, FetchKey{Month: MonthOf(july2025), Duration: 60})
	assert.ErrorIs(t, err, ErrNoProvider)
	assert.Equal(t, 0, src.calls)
	assert.False(t, f.Loading())
	assert.Equal(t, "No se especificó un terapeuta", errs.UserMessage(f.Err()))
}

func TestFetcher_EveryCallHitsTheNetwork(t *testing.T) {
	src := &stubSource{month: julyAvailability()}
	var f Fetcher
	key := FetchKey{ProviderID: 7, Month: MonthOf(july2025), Duration: 60}

	require.NoError(t, f.Fetch(context.Background(), src, key))
	require.NoError(t, f.Fetch(context.Background(), src, key))
	assert.Equal(t, 2, src.calls)
	assert.True(t, f.Settled(key))
}

func TestFetcher_ErrorClearsMonth(t *testing.T) {
	src := &stubSource{month: julyAvailability()}
	var f Fetcher
	key := FetchKey{ProviderID: 7, Month: MonthOf(july2025), Duration: 60}
	require.NoError(t, f.Fetch(context.Background(), src, key))
	require.NotNil(t, f.Month())

	src.err = errors.New("connection refused")
	require.Error(t, f.Fetch(context.Background(), src, key))
	assert.Nil(t, f.Month())
	assert.EqualError(t, f.Err(), "connection refused")
}

func firstAvailable(w *Wizard) string {
	for _, week := range w.Calendar() {
		for _, c := range week {
			if c.State == DayAvailable {
				return c.Date
			}
		}
	}
	return ""
}

// shiftAvailability opens the first Tuesday of m with two slots.
func shiftAvailability(m Month) AvailabilityMonth {
	out := AvailabilityMonth{}
	for day := 1; day <= 7; day++ {
		date := m.Date(day)
		d, _ := time.Parse(dateLayout, date)
		if d.Weekday() == time.Tuesday {
			out[date] = DayAvailability{Available: true, AvailableSlots: []string{"09:00", "12:00"}, TotalAvailable: 2}
		}
	}
	return out
}
