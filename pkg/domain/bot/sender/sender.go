package sender

import (
	"context"
	"fmt"
	"math"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/napryag/tg_physio_bot/pkg/metrics"
	"github.com/napryag/tg_physio_bot/pkg/utils/errs"
)

// Bot is the part of tgbotapi.BotAPI the processor needs.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Processor posts notices to the clinic's reception channel.
type Processor struct {
	config  ProcessorConfig
	logger  zerolog.Logger
	bot     Bot
	limiter *rate.Limiter
	metrics *metrics.BotMetrics
	backoff func(attempt int) time.Duration
}

func New(config ProcessorConfig, logger zerolog.Logger, bot Bot, m *metrics.BotMetrics) *Processor {
	if config.Attempts <= 0 {
		config.Attempts = 3
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RatePerSecond), 1)
	}
	return &Processor{
		config:  config,
		logger:  logger.With().Str("component", "sender").Logger(),
		bot:     bot,
		limiter: limiter,
		metrics: m,
		backoff: func(attempt int) time.Duration {
			return time.Duration(math.Pow(2, float64(attempt))) * time.Second
		},
	}
}

// Send posts text to the channel, retrying with exponential backoff.
func (p *Processor) Send(ctx context.Context, text string) (int, error) {
	p.logger.Trace().Msg("In")
	defer p.logger.Trace().Msg("Out")

	chatID, username, err := p.config.target()
	if err != nil {
		return 0, err
	}

	var msgToSend tgbotapi.MessageConfig
	if username != "" {
		msgToSend = tgbotapi.NewMessageToChannel(username, text)
	} else {
		msgToSend = tgbotapi.NewMessage(chatID, text)
	}

	var msg tgbotapi.Message
loop:
	for i := 0; i < p.config.Attempts; i++ {
		if err = p.limiter.Wait(ctx); err != nil {
			break
		}
		msg, err = p.bot.Send(msgToSend)
		if err == nil {
			p.metrics.ObserveNotification("sent")
			return msg.MessageID, nil
		}
		p.logger.Warn().Err(err).Int("retry", i+1).Msg("send failed, retrying")

		if i != 0 && i < p.config.Attempts-1 {
			select {
			case <-ctx.Done():
				err = ctx.Err()
				break loop
			case <-time.After(p.backoff(i)):
			}
		}
	}
	p.logger.Error().Err(err).Msg("send permanently failed")
	p.metrics.ObserveNotification("failed")

	return 0, errs.New("failed to send message").Wrap(err)
}

// Notice is what the reception channel learns about a new booking.
type Notice struct {
	AppointmentID int64
	Patient       string
	Provider      string
	Type          string
	DateTime      string
	Duration      int
}

// NotifyBooking posts a booking notice when a channel is configured.
func (p *Processor) NotifyBooking(ctx context.Context, n Notice) error {
	if p == nil || !p.config.Enabled() {
		return nil
	}
	text := fmt.Sprintf("Nueva cita #%d\nPaciente: %s\nTerapeuta: %s\nTipo: %s\nFecha: %s (%d min)",
		n.AppointmentID, n.Patient, n.Provider, n.Type, n.DateTime, n.Duration)
	_, err := p.Send(ctx, text)
	return err
}
