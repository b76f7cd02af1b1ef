package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/plume-sante/community-backend/internal/bodycodec"
	"github.com/plume-sante/community-backend/internal/config"
	"github.com/plume-sante/community-backend/internal/db"
	"github.com/plume-sante/community-backend/internal/model"
	"github.com/plume-sante/community-backend/internal/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	gitSHA    = "dev"
	buildTime = "unknown"
)

func main() {
	_ = godotenv.Load()
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	codec, err := bodycodec.New(cfg.MessageKey)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid message key")
	}
	if !codec.Enabled() {
		log.Warn().Msg("MESSAGE_KEY not set, storing message bodies in plaintext")
	}

	conn, err := db.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	if err := conn.AutoMigrate(
		&model.Person{},
		&model.Conversation{},
		&model.ConversationMember{},
		&model.Message{},
		&model.MessageReaction{},
		&model.Notification{},
	); err != nil {
		log.Fatal().Err(err).Msg("auto migrate failed")
	}

	srv := server.New(conn, codec, gitSHA, buildTime)
	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Msg("starting server")
	if err := srv.Start(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
