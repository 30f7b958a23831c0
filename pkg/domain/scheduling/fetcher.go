package scheduling

import (
	"context"
	"time"

	"github.com/napryag/tg_physio_bot/pkg/utils/errs"
)

// ErrNoProvider is returned without touching the network when a fetch is
// requested before a provider is chosen.
var ErrNoProvider = errs.Input("No se especificó un terapeuta")

// AvailabilitySource loads one month of availability from the backend.
type AvailabilitySource interface {
	FetchAvailability(ctx context.Context, providerID int64, month time.Month, year, durationMinutes int) (AvailabilityMonth, error)
}

// FetchKey identifies the inputs of an availability fetch.
type FetchKey struct {
	ProviderID int64
	Month      Month
	Duration   int
}

// Ticket tags one outstanding fetch. Only the newest ticket may apply its
// result.
type Ticket struct {
	Key FetchKey
	Seq uint64
}

// Fetcher holds the availability of the displayed month and drops responses
// that were superseded by a newer request.
type Fetcher struct {
	seq     uint64
	pending *Ticket
	key     FetchKey
	month   AvailabilityMonth
	err     error
}

// Begin opens a new fetch and clears the current data.
func (f *Fetcher) Begin(key FetchKey) (Ticket, error) {
	f.month = nil
	f.key = key
	if key.ProviderID <= 0 {
		f.pending = nil
		f.err = ErrNoProvider
		return Ticket{}, ErrNoProvider
	}
	f.seq++
	t := Ticket{Key: key, Seq: f.seq}
	f.pending = &t
	f.err = nil
	return t, nil
}

// Complete applies a response. It returns false when the ticket is stale and
// the response was discarded.
func (f *Fetcher) Complete(t Ticket, month AvailabilityMonth, err error) bool {
	if f.pending == nil || f.pending.Seq != t.Seq {
		return false
	}
	f.pending = nil
	if err != nil {
		f.month = nil
		f.err = err
		return true
	}
	f.month = Normalize(month)
	f.err = nil
	return true
}

// Fetch runs Begin, the request and Complete in one call.
func (f *Fetcher) Fetch(ctx context.Context, src AvailabilitySource, key FetchKey) error {
	t, err := f.Begin(key)
	if err != nil {
		return err
	}
	month, err := src.FetchAvailability(ctx, key.ProviderID, key.Month.Month, key.Month.Year, key.Duration)
	f.Complete(t, month, err)
	return err
}

// Reset forgets data, errors and any outstanding ticket.
func (f *Fetcher) Reset() {
	f.pending = nil
	f.month = nil
	f.err = nil
	f.key = FetchKey{}
}

// Loading reports whether a fetch is outstanding.
func (f *Fetcher) Loading() bool { return f.pending != nil }

// Month is the last applied availability, nil while loading or after an error.
func (f *Fetcher) Month() AvailabilityMonth { return f.month }

// Err is the error of the last applied fetch.
func (f *Fetcher) Err() error { return f.err }

// Key is the key of the last fetch begun.
func (f *Fetcher) Key() FetchKey { return f.key }

// Settled reports whether the fetcher holds a result or an error for key.
func (f *Fetcher) Settled(key FetchKey) bool {
	if f.key != key || f.pending != nil {
		return false
	}
	return f.month != nil || f.err != nil
}
