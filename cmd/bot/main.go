package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/napryag/tg_physio_bot/pkg/api"
	"github.com/napryag/tg_physio_bot/pkg/domain/auth"
	"github.com/napryag/tg_physio_bot/pkg/domain/bot/receiver"
	"github.com/napryag/tg_physio_bot/pkg/domain/bot/receiver/config"
	"github.com/napryag/tg_physio_bot/pkg/domain/bot/receiver/store"
	"github.com/napryag/tg_physio_bot/pkg/domain/bot/sender"
	"github.com/napryag/tg_physio_bot/pkg/metrics"
	"github.com/napryag/tg_physio_bot/pkg/ops"
	"github.com/napryag/tg_physio_bot/pkg/repository/model"
	"github.com/napryag/tg_physio_bot/pkg/utils/errs"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Err(errs.New("failed to load config").Wrap(err)).Msg("config init")
		os.Exit(1)
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(lvl)
	}

	// Context ends on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, check, closeRepo, err := openSessions(ctx, cfg, logger)
	if err != nil {
		logger.Err(err).Str("backend", cfg.SessionBackend).Msg("session store init")
		os.Exit(1)
	}
	defer closeRepo()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("create bot api")
		os.Exit(1)
	}
	bot.Debug = false
	logger.Info().Str("bot", bot.Self.UserName).Msg("authorized")

	client := api.NewClient(cfg.APIBaseURL, cfg.APITimeout, logger, m)
	sessions := auth.NewManager(repo, client, logger)
	notices := sender.New(sender.ProcessorConfig{
		ChannelID:     cfg.ChannelID,
		RatePerSecond: cfg.SendRate,
	}, logger, bot, m)

	dispatcher := receiver.NewDispatcher(receiver.Deps{
		Bot:      bot,
		Backend:  func(token string) receiver.Backend { return client.WithToken(token) },
		Sessions: sessions,
		Users:    repo,
		Notifier: notices,
		Metrics:  m,
		Logger:   logger,
	}, receiver.Options{
		Workers:       cfg.WorkerCount,
		RedirectDelay: cfg.RedirectDelay,
	})

	checks := map[string]ops.Check{}
	if check != nil {
		checks["sessions"] = check
	}
	opsServer := ops.NewServer(cfg.HTTPPort, ops.NewRouter(reg, checks), logger)
	go func() {
		if err := opsServer.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("ops server")
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 10
	updates := bot.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		logger.Info().Msg("shutting down bot")
		// closes updates, which ends the dispatcher loop
		bot.StopReceivingUpdates()
	}()

	dispatcher.Run(ctx, updates)
	logger.Info().Msg("bot stopped")
}

// openSessions picks the session store named by the config.
func openSessions(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (model.Repo, ops.Check, func(), error) {
	switch cfg.SessionBackend {
	case "postgres":
		repo, err := store.NewRepo(ctx, cfg.PostgreAddr)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			repo.Close()
			return nil, nil, nil, err
		}
		logger.Info().Msg("sessions in postgres")
		return repo, repo.Ping, repo.Close, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		repo, err := store.NewRedisRepo(ctx, client, cfg.SessionTTL)
		if err != nil {
			_ = client.Close()
			return nil, nil, nil, err
		}
		logger.Info().Str("addr", cfg.RedisAddr).Msg("sessions in redis")
		return repo, repo.Ping, func() { _ = client.Close() }, nil
	}

	logger.Warn().Msg("sessions in memory, logins are lost on restart")
	return store.NewMemoryRepo(), nil, func() {}, nil
}
