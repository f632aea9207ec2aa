package main

import (
	"mailpilot/config"
	"mailpilot/internal/api"
	"mailpilot/internal/db"
	"mailpilot/internal/engine"
	"mailpilot/internal/intent"
	"mailpilot/internal/llm"
	"mailpilot/internal/mailer"
	"mailpilot/internal/mq"
	"mailpilot/internal/repository"
	"mailpilot/internal/session"
	"mailpilot/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	// 1. Load config
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	// 2. Session store; Redis snapshots are optional
	var snap session.Snapshotter
	if cfg.Redis.Addr != "" {
		snap = session.NewRedisSnapshotter(cfg.Redis, cfg.Chat.SessionTTL)
		log.Info("session snapshots enabled", zap.String("redis", cfg.Redis.Addr))
	}
	store := session.NewStore(cfg.Chat.SessionTTL, snap, log)

	// 3. Action audit; optional, the engine runs without it
	var audit engine.ActionRecorder
	if cfg.DB.Host != "" {
		dbConn, err := db.NewConnection(cfg.DB, log)
		if err != nil {
			log.Fatal("DB initialization failed", zap.Error(err))
		}
		defer dbConn.Close()
		audit = repository.NewActionAuditRepository(dbConn)
	}

	// 4. Action events; optional
	var events engine.EventPublisher
	if cfg.MQ.URL != "" {
		producer, err := mq.NewProducer(cfg.MQ.URL)
		if err != nil {
			log.Fatal("failed to init producer", zap.Error(err))
		}
		defer producer.Close()
		events = producer
	}

	// 5. Model client, intent parser, mail provider factory
	completer := llm.NewGeminiClient(cfg.Gemini, log)
	parser := intent.NewParser(completer, log)
	providers := mailer.NewGmailFactory(cfg.Gmail, log)

	// 6. Engine
	dispatcher := engine.NewDispatcher(completer, cfg.Chat, audit, events, log)
	eng := engine.NewEngine(parser, dispatcher, store, providers, cfg.Chat, log)

	// 7. HTTP
	chatHandler := api.NewChatHandler(eng, log)
	router := api.NewRouter(chatHandler, cfg.JWT.Secret)

	log.Info("server starting", zap.String("port", cfg.Server.Port))
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}
