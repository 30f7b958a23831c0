package receiver

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/napryag/tg_physio_bot/pkg/api"
	"github.com/napryag/tg_physio_bot/pkg/domain/auth"
	"github.com/napryag/tg_physio_bot/pkg/domain/bot/receiver/keyboards"
	"github.com/napryag/tg_physio_bot/pkg/domain/bot/sender"
	"github.com/napryag/tg_physio_bot/pkg/domain/scheduling"
	"github.com/napryag/tg_physio_bot/pkg/metrics"
	"github.com/napryag/tg_physio_bot/pkg/repository/model"
	"github.com/napryag/tg_physio_bot/pkg/utils/errs"
)

// BotAPI is the part of tgbotapi.BotAPI the dispatcher needs.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Backend is the clinic API as seen by one logged in user.
type Backend interface {
	scheduling.AvailabilitySource
	ListProviders(ctx context.Context) ([]api.Provider, error)
	CreateAppointment(ctx context.Context, req scheduling.BookingRequest) (api.BookingResponse, error)
	ListMyAppointments(ctx context.Context) ([]api.Appointment, error)
}

// BackendFor returns a backend authenticated with token.
type BackendFor func(token string) Backend

type Sessions interface {
	Load(ctx context.Context, tgUserID int64) (auth.Session, error)
	Login(ctx context.Context, tgUserID int64, email, password string) (auth.Session, error)
	Logout(ctx context.Context, tgUserID int64) error
}

type Users interface {
	UpsertUser(ctx context.Context, u model.User) (int64, error)
}

type Notifier interface {
	NotifyBooking(ctx context.Context, n sender.Notice) error
}

// Deps are the collaborators of a Dispatcher. Users and Notifier may be nil.
type Deps struct {
	Bot      BotAPI
	Backend  BackendFor
	Sessions Sessions
	Users    Users
	Notifier Notifier
	Metrics  *metrics.BotMetrics
	Logger   zerolog.Logger
}

type Options struct {
	Workers       int
	RedirectDelay time.Duration
	// ReminderTTL is how long the "use the buttons" reminder stays.
	ReminderTTL time.Duration
}

const (
	msgUseButtons  = "Por favor, use los botones 👆"
	msgLoginFirst  = "Inicie sesión con /login <correo> <contraseña> para continuar."
	msgLoginUsage  = "Uso: /login <correo> <contraseña>"
	msgUnavailable = "Esta acción no está disponible ahora"
	msgSlotTaken   = "Horario no disponible"
	msgLoggedOut   = "Sesión cerrada."
)

// event is work finished off the loop, applied back on it. Events for a
// flow that was reset in the meantime are dropped.
type event struct {
	userID int64
	ctx    context.Context
	apply  func(c *Chat)
}

// Dispatcher serializes Telegram updates and backend results on one
// goroutine; all Chat state is touched only there.
type Dispatcher struct {
	bot      BotAPI
	backend  BackendFor
	sessions Sessions
	users    Users
	notifier Notifier
	metrics  *metrics.BotMetrics
	logger   zerolog.Logger
	opts     Options
	now      func() time.Time

	store   *Store
	base    context.Context
	results chan event
	sem     chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewDispatcher(deps Deps, opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.RedirectDelay <= 0 {
		opts.RedirectDelay = 2 * time.Second
	}
	if opts.ReminderTTL <= 0 {
		opts.ReminderTTL = 5 * time.Second
	}
	return &Dispatcher{
		bot:      deps.Bot,
		backend:  deps.Backend,
		sessions: deps.Sessions,
		users:    deps.Users,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		logger:   deps.Logger.With().Str("component", "receiver").Logger(),
		opts:     opts,
		now:      time.Now,
		store:    NewStore(),
		base:     context.Background(),
		results:  make(chan event),
		sem:      make(chan struct{}, opts.Workers),
		done:     make(chan struct{}),
	}
}

// Run handles updates until ctx ends or the channel closes. In-flight
// backend calls are cancelled and awaited before it returns.
func (d *Dispatcher) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	d.base = ctx
	defer func() {
		d.store.CancelAll()
		close(d.done)
		d.wg.Wait()
		d.logger.Info().Int("chats", d.store.Len()).Msg("dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			d.handleUpdate(u)
		case ev := <-d.results:
			d.apply(ev)
		}
	}
}

// ---------- Loop plumbing ----------

func (d *Dispatcher) handleUpdate(u tgbotapi.Update) {
	switch {
	case u.Message != nil && u.Message.From != nil:
		m := u.Message
		c, _ := d.store.Get(d.base, m.From.ID)
		c.ChatID = m.Chat.ID
		c.FirstName = m.From.FirstName
		kind := "text"
		if m.IsCommand() {
			kind = "command"
		}
		d.metrics.ObserveUpdate(kind)
		d.withSession(c, m.From, func(c *Chat) { d.onMessage(c, m) })

	case u.CallbackQuery != nil && u.CallbackQuery.From != nil:
		cq := u.CallbackQuery
		c, _ := d.store.Get(d.base, cq.From.ID)
		if cq.Message != nil {
			c.ChatID = cq.Message.Chat.ID
			if c.MessageID == 0 {
				c.MessageID = cq.Message.MessageID
			}
		}
		if c.FirstName == "" {
			c.FirstName = cq.From.FirstName
		}
		d.metrics.ObserveUpdate("callback")
		d.withSession(c, cq.From, func(c *Chat) { d.onCallback(c, cq) })
	}
}

// withSession runs fn once the chat's persisted login is known.
func (d *Dispatcher) withSession(c *Chat, from *tgbotapi.User, fn func(c *Chat)) {
	if c.loaded {
		d.safely(c.ChatID, func() { fn(c) })
		return
	}
	c.pending = append(c.pending, fn)
	if c.loading {
		return
	}
	c.loading = true

	if d.users != nil {
		u := model.User{TgUserID: from.ID, TgChatID: c.ChatID}
		if from.UserName != "" {
			u.Username = &from.UserName
		}
		if from.FirstName != "" {
			u.FirstName = &from.FirstName
		}
		if from.LastName != "" {
			u.LastName = &from.LastName
		}
		d.background(func(ctx context.Context) {
			if _, err := d.users.UpsertUser(ctx, u); err != nil {
				d.logger.Warn().Err(err).Int64("user", u.TgUserID).Msg("upsert user")
			}
		})
	}

	userID := c.UserID
	// a failed or panicking load still releases the queued updates
	loaded := func(c *Chat, s auth.Session) {
		c.Auth = s
		c.loaded = true
		c.loading = false
		pending := c.pending
		c.pending = nil
		for _, fn := range pending {
			d.safely(c.ChatID, func() { fn(c) })
		}
	}
	d.spawnWith(c, func(ctx context.Context) func(c *Chat) {
		s, err := d.sessions.Load(ctx, userID)
		return func(c *Chat) {
			if err != nil {
				d.logger.Warn().Err(err).Int64("user", userID).Msg("load session, continuing anonymous")
			}
			loaded(c, s)
		}
	}, func(c *Chat) { loaded(c, auth.Session{}) })
}

// spawn runs job on the worker pool with the chat's flow context. The
// function it returns is applied on the loop.
func (d *Dispatcher) spawn(c *Chat, job func(ctx context.Context) func(c *Chat)) {
	d.spawnWith(c, job, nil)
}

// spawnWith is spawn with a loop-side cleanup that runs after the error id
// is shown when job panics.
func (d *Dispatcher) spawnWith(c *Chat, job func(ctx context.Context) func(c *Chat), onPanic func(c *Chat)) {
	ctx := c.Context()
	userID := c.UserID
	chatID := c.ChatID

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		select {
		case d.sem <- struct{}{}:
		case <-d.done:
			return
		}
		apply := d.runJob(ctx, chatID, job, onPanic)
		<-d.sem
		if apply == nil {
			return
		}
		d.post(event{userID: userID, ctx: ctx, apply: apply})
	}()
}

func (d *Dispatcher) runJob(ctx context.Context, chatID int64, job func(ctx context.Context) func(c *Chat), onPanic func(c *Chat)) (apply func(c *Chat)) {
	defer func() {
		if r := recover(); r != nil {
			id := d.logPanic(r)
			apply = func(c *Chat) {
				d.sendFallback(chatID, id)
				if onPanic != nil {
					onPanic(c)
				}
			}
		}
	}()
	return job(ctx)
}

// background runs fn detached from any chat flow; only shutdown cancels it.
func (d *Dispatcher) background(fn func(ctx context.Context)) {
	ctx := d.base
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logPanic(r)
			}
		}()
		fn(ctx)
	}()
}

func (d *Dispatcher) post(ev event) {
	select {
	case d.results <- ev:
	case <-d.done:
	}
}

func (d *Dispatcher) apply(ev event) {
	c, _ := d.store.Get(d.base, ev.userID)
	if ev.ctx != c.Context() || ev.ctx.Err() != nil {
		d.logger.Debug().Int64("user", ev.userID).Msg("dropping result of a reset flow")
		return
	}
	d.safely(c.ChatID, func() { ev.apply(c) })
}

// safely recovers a panicking handler and shows the user an error id that
// matches the log line.
func (d *Dispatcher) safely(chatID int64, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.sendFallback(chatID, d.logPanic(r))
		}
	}()
	fn()
}

func (d *Dispatcher) logPanic(r interface{}) string {
	id := uuid.NewString()
	d.logger.Error().
		Str("error_id", id).
		Str("panic", fmt.Sprint(r)).
		Str("stack", string(debug.Stack())).
		Msg("handler panicked")
	return id
}

func (d *Dispatcher) sendFallback(chatID int64, id string) {
	if chatID == 0 {
		return
	}
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("%s Código de error: %s", errs.UserMessage(errs.New("panic")), id))
	if _, err := d.bot.Send(msg); err != nil {
		d.logger.Warn().Err(err).Msg("send fallback")
	}
}

// ---------- Telegram output ----------

// render edits the live screen in place, or sends a new one.
func (d *Dispatcher) render(c *Chat) {
	now := d.now()
	text := RenderText(c, now)
	kb := RenderKeyboard(c, now)

	if c.MessageID != 0 {
		edit := tgbotapi.NewEditMessageTextAndMarkup(c.ChatID, c.MessageID, text, kb)
		edit.ParseMode = tgbotapi.ModeHTML
		_, err := d.bot.Send(edit)
		if err == nil || strings.Contains(err.Error(), "message is not modified") {
			return
		}
		d.logger.Warn().Err(err).Int64("chat", c.ChatID).Msg("edit screen, sending a new one")
	}

	msg := tgbotapi.NewMessage(c.ChatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = kb
	sent, err := d.bot.Send(msg)
	if err != nil {
		d.logger.Error().Err(err).Int64("chat", c.ChatID).Msg("send screen")
		return
	}
	c.MessageID = sent.MessageID
}

func (d *Dispatcher) deleteMessage(chatID int64, messageID int) {
	if _, err := d.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		d.logger.Debug().Err(err).Msg("delete message")
	}
}

func (d *Dispatcher) answer(id, text string) {
	if _, err := d.bot.Request(tgbotapi.NewCallback(id, text)); err != nil {
		d.logger.Debug().Err(err).Msg("answer callback")
	}
}

// remind deletes stray text and shows a short lived hint.
func (d *Dispatcher) remind(c *Chat, m *tgbotapi.Message) {
	d.deleteMessage(m.Chat.ID, m.MessageID)
	sent, err := d.bot.Send(tgbotapi.NewMessage(m.Chat.ID, msgUseButtons))
	if err != nil {
		d.logger.Warn().Err(err).Msg("send reminder")
		return
	}
	chatID, mid := m.Chat.ID, sent.MessageID
	time.AfterFunc(d.opts.ReminderTTL, func() { d.deleteMessage(chatID, mid) })
}

// ---------- Messages ----------

func (d *Dispatcher) onMessage(c *Chat, m *tgbotapi.Message) {
	if m.IsCommand() {
		switch m.Command() {
		case "start":
			d.deleteMessage(m.Chat.ID, m.MessageID)
			if c.Submitting() {
				c.Notice = errs.UserMessage(scheduling.ErrInFlight)
				d.render(c)
				return
			}
			c.ResetFlow(d.base)
			c.MessageID = 0
			d.render(c)
		case "login":
			d.login(c, m)
		case "logout":
			d.logout(c, m)
		case "cancel":
			d.cancel(c, m)
		default:
			d.remind(c, m)
		}
		return
	}

	if c.Awaiting != "" && c.Screen == ScreenBooking && c.Wizard != nil {
		d.deleteMessage(m.Chat.ID, m.MessageID)
		if err := c.Wizard.SetField(c.Awaiting, m.Text); err != nil {
			c.Notice = errs.UserMessage(err)
		}
		c.Awaiting = ""
		d.render(c)
		return
	}
	d.remind(c, m)
}

func (d *Dispatcher) login(c *Chat, m *tgbotapi.Message) {
	// the message carries a password
	d.deleteMessage(m.Chat.ID, m.MessageID)

	args := strings.Fields(m.CommandArguments())
	if len(args) != 2 {
		c.Notice = msgLoginUsage
		d.render(c)
		return
	}
	email, password := args[0], args[1]
	userID := c.UserID
	d.spawn(c, func(ctx context.Context) func(c *Chat) {
		s, err := d.sessions.Login(ctx, userID, email, password)
		return func(c *Chat) {
			if err != nil {
				d.logger.Warn().Err(err).Int64("user", userID).Msg("login failed")
				c.Notice = errs.UserMessage(err)
			} else {
				c.Auth = s
				c.Go(ScreenMain)
			}
			d.render(c)
		}
	})
}

func (d *Dispatcher) logout(c *Chat, m *tgbotapi.Message) {
	d.deleteMessage(m.Chat.ID, m.MessageID)
	if c.Submitting() {
		c.Notice = errs.UserMessage(scheduling.ErrInFlight)
		d.render(c)
		return
	}
	c.ResetFlow(d.base)
	c.Auth = auth.Session{}
	userID := c.UserID
	d.spawn(c, func(ctx context.Context) func(c *Chat) {
		err := d.sessions.Logout(ctx, userID)
		return func(c *Chat) {
			if err != nil {
				d.logger.Warn().Err(err).Int64("user", userID).Msg("logout")
				c.Notice = errs.UserMessage(err)
			} else {
				c.Notice = msgLoggedOut
			}
			d.render(c)
		}
	})
}

func (d *Dispatcher) cancel(c *Chat, m *tgbotapi.Message) {
	d.deleteMessage(m.Chat.ID, m.MessageID)
	switch {
	case c.Awaiting != "":
		c.Awaiting = ""
	case c.Submitting():
		c.Notice = errs.UserMessage(scheduling.ErrInFlight)
	default:
		c.ResetFlow(d.base)
	}
	d.render(c)
}

// ---------- Callbacks ----------

func (d *Dispatcher) onCallback(c *Chat, cq *tgbotapi.CallbackQuery) {
	var toast string
	defer func() { d.answer(cq.ID, toast) }()

	data := cq.Data
	switch data {
	case keyboards.CbNoop:
		return
	case keyboards.CbMain:
		if c.Submitting() {
			toast = errs.UserMessage(scheduling.ErrInFlight)
			return
		}
		c.ResetFlow(d.base)
		d.render(c)
		return
	case keyboards.CbHelp:
		c.Go(ScreenHelp)
		d.render(c)
		return
	case keyboards.CbBook:
		if !d.requireLogin(c) {
			return
		}
		if c.Submitting() {
			toast = errs.UserMessage(scheduling.ErrInFlight)
			return
		}
		c.ResetFlow(d.base)
		c.Wizard = scheduling.NewWizard(d.now())
		c.Go(ScreenBooking)
		d.render(c)
		if len(c.Providers) == 0 {
			d.loadProviders(c)
		}
		return
	case keyboards.CbMy:
		if !d.requireLogin(c) {
			return
		}
		d.showAppointments(c)
		return
	}

	w := c.Wizard
	if c.Screen != ScreenBooking || w == nil {
		toast = msgUnavailable
		return
	}

	var err error
	switch {
	case data == keyboards.CbNext:
		err = w.Next()
	case data == keyboards.CbBack:
		c.Awaiting = ""
		if !w.Back() {
			if w.Step() != scheduling.StepProviderType {
				toast = msgUnavailable
				return
			}
			c.ResetFlow(d.base)
		}
	case data == keyboards.CbCalPrev:
		err = w.Navigate(scheduling.Previous)
	case data == keyboards.CbCalNext:
		err = w.Navigate(scheduling.Next)
	case data == keyboards.CbSubmit:
		c.Awaiting = ""
		err = d.submit(c, w)
	default:
		toast, err = d.onWizardValue(c, w, data)
	}
	if err != nil {
		toast = errs.UserMessage(err)
	}
	d.fetchIfNeeded(c)
	d.render(c)
}

// onWizardValue handles callbacks that carry a value after their prefix.
func (d *Dispatcher) onWizardValue(c *Chat, w *scheduling.Wizard, data string) (string, error) {
	if v, ok := keyboards.Is(data, keyboards.PProvider); ok {
		name := ""
		for _, p := range c.Providers {
			if strconv.FormatInt(p.ID, 10) == v {
				name = p.Name
			}
		}
		if name == "" {
			return msgUnavailable, nil
		}
		return "", w.SetProvider(v, name)
	}
	if v, ok := keyboards.Is(data, keyboards.PType); ok {
		for _, t := range scheduling.AppointmentTypes {
			if string(t) == v {
				return "", w.SetType(t)
			}
		}
		return msgUnavailable, nil
	}
	if v, ok := keyboards.Is(data, keyboards.PDuration); ok {
		n, _ := strconv.Atoi(v)
		for _, m := range scheduling.Durations {
			if m == n {
				return "", w.SetDuration(n)
			}
		}
		return msgUnavailable, nil
	}
	if v, ok := keyboards.Is(data, keyboards.PDay); ok {
		if !w.SelectDate(v) {
			_, tip := scheduling.Classify(w.Fetcher.Month(), v)
			return tip, nil
		}
		return "", nil
	}
	if v, ok := keyboards.Is(data, keyboards.PSlot); ok {
		if _, ok := w.SelectTime(v); !ok {
			return msgSlotTaken, nil
		}
		return "", nil
	}
	if v, ok := keyboards.Is(data, keyboards.PPain); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return msgUnavailable, nil
		}
		return "", w.SetPainScale(n)
	}
	if v, ok := keyboards.Is(data, keyboards.PField); ok {
		if w.Step() != scheduling.StepClinicalInfo && w.Step() != scheduling.StepFailed {
			return "", scheduling.ErrWrongStep
		}
		for _, f := range scheduling.ClinicalFields {
			if string(f) == v {
				c.Awaiting = f
				return "", nil
			}
		}
		return msgUnavailable, nil
	}
	return msgUnavailable, nil
}

func (d *Dispatcher) requireLogin(c *Chat) bool {
	if c.Auth.Valid(d.now()) {
		return true
	}
	c.Auth = auth.Session{}
	c.Go(ScreenMain)
	c.Notice = msgLoginFirst
	d.render(c)
	return false
}

// ---------- Backend work ----------

func (d *Dispatcher) loadProviders(c *Chat) {
	backend := d.backend(c.Auth.Token)
	d.spawn(c, func(ctx context.Context) func(c *Chat) {
		providers, err := backend.ListProviders(ctx)
		return func(c *Chat) {
			if err != nil {
				c.Notice = errs.UserMessage(err)
			} else {
				c.Providers = providers
			}
			d.render(c)
		}
	})
}

// fetchIfNeeded requests availability when the date step shows a month it
// has no data for. Superseded responses are discarded on arrival.
func (d *Dispatcher) fetchIfNeeded(c *Chat) {
	w := c.Wizard
	if c.Screen != ScreenBooking || w == nil || !w.NeedsFetch() {
		return
	}
	ticket, err := w.BeginFetch()
	if err != nil {
		return
	}
	backend := d.backend(c.Auth.Token)
	d.spawn(c, func(ctx context.Context) func(c *Chat) {
		key := ticket.Key
		month, err := backend.FetchAvailability(ctx, key.ProviderID, key.Month.Month, key.Month.Year, key.Duration)
		return func(c *Chat) {
			if c.Wizard != w || !w.CompleteFetch(ticket, month, err) {
				d.metrics.ObserveStale()
				return
			}
			if err != nil {
				d.logger.Warn().Err(err).Str("month", key.Month.String()).Msg("availability fetch failed")
				d.metrics.ObserveFetch("error")
			} else {
				d.metrics.ObserveFetch("ok")
			}
			d.render(c)
		}
	})
}

func (d *Dispatcher) submit(c *Chat, w *scheduling.Wizard) error {
	req, err := w.BeginSubmit()
	if err != nil {
		return err
	}

	patient := c.FirstName
	if c.Auth.Name != "" {
		patient = c.Auth.Name
	}
	notice := sender.Notice{
		Patient:  patient,
		Provider: w.Draft.ProviderName,
		Type:     w.Draft.Type.Title(),
		DateTime: req.DateTime,
		Duration: req.Duration,
	}

	backend := d.backend(c.Auth.Token)
	d.spawn(c, func(ctx context.Context) func(c *Chat) {
		resp, err := backend.CreateAppointment(ctx, req)
		if err != nil {
			d.metrics.ObserveSubmission("error")
		} else {
			d.metrics.ObserveSubmission("ok")
		}
		return func(c *Chat) {
			w.FinishSubmit(err)
			if err != nil {
				d.logger.Warn().Err(err).Int64("user", c.UserID).Msg("create appointment")
			} else {
				d.logger.Info().Int64("user", c.UserID).Int64("appointment", resp.ID).Msg("appointment created")
				notice.AppointmentID = resp.ID
				d.notify(notice)
			}
			if c.Wizard != w {
				return
			}
			d.render(c)
			if err == nil {
				d.scheduleRedirect(c, w)
			}
		}
	})
	return nil
}

func (d *Dispatcher) notify(n sender.Notice) {
	if d.notifier == nil {
		return
	}
	d.background(func(ctx context.Context) {
		if err := d.notifier.NotifyBooking(ctx, n); err != nil {
			d.logger.Warn().Err(err).Int64("appointment", n.AppointmentID).Msg("reception notice")
		}
	})
}

// scheduleRedirect shows the appointment list a moment after a confirmed
// booking, unless the user moved on.
func (d *Dispatcher) scheduleRedirect(c *Chat, w *scheduling.Wizard) {
	ev := event{
		userID: c.UserID,
		ctx:    c.Context(),
		apply: func(c *Chat) {
			if c.Screen != ScreenBooking || c.Wizard != w || w.Step() != scheduling.StepConfirmed {
				return
			}
			d.showAppointments(c)
		},
	}
	time.AfterFunc(d.opts.RedirectDelay, func() { d.post(ev) })
}

func (d *Dispatcher) showAppointments(c *Chat) {
	backend := d.backend(c.Auth.Token)
	d.spawn(c, func(ctx context.Context) func(c *Chat) {
		list, err := backend.ListMyAppointments(ctx)
		return func(c *Chat) {
			if err != nil {
				c.Notice = errs.UserMessage(err)
			}
			c.Appointments = list
			c.Wizard = nil
			c.Go(ScreenMyAppointments)
			d.render(c)
		}
	})
}
