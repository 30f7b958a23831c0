package receiver

import (
	"context"
	"sync"

	"github.com/napryag/tg_physio_bot/pkg/api"
	"github.com/napryag/tg_physio_bot/pkg/domain/auth"
	"github.com/napryag/tg_physio_bot/pkg/domain/scheduling"
)

// ---------- Screens ----------

type Screen int

const (
	ScreenMain Screen = iota
	ScreenBooking
	ScreenMyAppointments
	ScreenHelp
)

// Chat is everything the bot knows about one Telegram user.
type Chat struct {
	UserID    int64
	ChatID    int64
	FirstName string

	Screen Screen
	Wizard *scheduling.Wizard
	Auth   auth.Session
	// Awaiting is the clinical field the next text message fills.
	Awaiting scheduling.Field

	Providers    []api.Provider
	Appointments []api.Appointment
	// Notice is a one-shot status line shown above the next render.
	Notice string
	// MessageID is the live screen that callbacks edit in place.
	MessageID int

	// loaded is set once the persisted login was read; updates that arrive
	// earlier wait in pending.
	loaded  bool
	loading bool
	pending []func(c *Chat)

	ctx    context.Context
	cancel context.CancelFunc
}

// Go switches screen and drops any pending text input.
func (c *Chat) Go(to Screen) {
	c.Screen = to
	c.Awaiting = ""
}

// ResetFlow returns to the main menu and cancels every request still in
// flight for this chat.
func (c *Chat) ResetFlow(parent context.Context) {
	if c.cancel != nil {
		c.cancel()
	}
	c.ctx, c.cancel = context.WithCancel(parent)
	c.Screen = ScreenMain
	c.Wizard = nil
	c.Awaiting = ""
	c.Appointments = nil
	c.Notice = ""
}

// Submitting reports whether a booking request is in flight. The flow
// must not be reset until it resolves.
func (c *Chat) Submitting() bool {
	return c.Wizard != nil && c.Wizard.Step() == scheduling.StepSubmitting
}

// Context is the lifetime of the chat's current flow.
func (c *Chat) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

func (c *Chat) takeNotice() string {
	n := c.Notice
	c.Notice = ""
	return n
}

// ---------- Chat store ----------

type Store struct {
	mu sync.RWMutex
	m  map[int64]*Chat
}

func NewStore() *Store {
	return &Store{m: make(map[int64]*Chat)}
}

// Get returns the chat of userID, creating it on first contact. The second
// result is true for a new chat.
func (s *Store) Get(parent context.Context, userID int64) (*Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.m[userID]; ok {
		return c, false
	}
	c := &Chat{UserID: userID}
	c.ResetFlow(parent)
	s.m[userID] = c
	return c, true
}

// Len is the number of known chats.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// CancelAll stops the in-flight work of every chat.
func (s *Store) CancelAll() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.m {
		if c.cancel != nil {
			c.cancel()
		}
	}
}
