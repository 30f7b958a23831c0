package sender

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyBot struct {
	failures int
	sent     []tgbotapi.MessageConfig
}

func (b *flakyBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if b.failures > 0 {
		b.failures--
		return tgbotapi.Message{}, errors.New("telegram: too many requests")
	}
	mc := c.(tgbotapi.MessageConfig)
	b.sent = append(b.sent, mc)
	return tgbotapi.Message{MessageID: 77}, nil
}

func newProcessor(bot Bot, channel string) *Processor {
	p := New(ProcessorConfig{ChannelID: channel}, zerolog.Nop(), bot, nil)
	p.backoff = func(int) time.Duration { return 0 }
	return p
}

func TestProcessor_SendRetries(t *testing.T) {
	bot := &flakyBot{failures: 2}
	p := newProcessor(bot, "-100123")

	id, err := p.Send(context.Background(), "hola")
	require.NoError(t, err)
	assert.Equal(t, 77, id)
	require.Len(t, bot.sent, 1)
	assert.Equal(t, int64(-100123), bot.sent[0].ChatID)
}

func TestProcessor_SendGivesUp(t *testing.T) {
	bot := &flakyBot{failures: 5}
	p := newProcessor(bot, "-100123")

	_, err := p.Send(context.Background(), "hola")
	require.Error(t, err)
	assert.Empty(t, bot.sent)
	assert.Equal(t, 2, bot.failures)
}

func TestProcessor_ChannelUsername(t *testing.T) {
	bot := &flakyBot{}
	p := newProcessor(bot, "recepcion_clinica")

	_, err := p.Send(context.Background(), "hola")
	require.NoError(t, err)
	assert.Equal(t, "@recepcion_clinica", bot.sent[0].ChannelUsername)
}

func TestProcessor_NotifyBooking(t *testing.T) {
	bot := &flakyBot{}
	p := newProcessor(bot, "-1")

	err := p.NotifyBooking(context.Background(), Notice{
		AppointmentID: 55,
		Patient:       "Marta",
		Provider:      "Ana Ruiz",
		Type:          "Seguimiento",
		DateTime:      "2025-07-08 09:00:00",
		Duration:      60,
	})
	require.NoError(t, err)
	require.Len(t, bot.sent, 1)
	assert.Contains(t, bot.sent[0].Text, "Nueva cita #55")
	assert.Contains(t, bot.sent[0].Text, "2025-07-08 09:00:00 (60 min)")
}

func TestProcessor_NotifyBookingDisabled(t *testing.T) {
	bot := &flakyBot{}
	p := newProcessor(bot, "")
	require.NoError(t, p.NotifyBooking(context.Background(), Notice{}))
	assert.Empty(t, bot.sent)

	var nilProcessor *Processor
	assert.NoError(t, nilProcessor.NotifyBooking(context.Background(), Notice{}))
}
