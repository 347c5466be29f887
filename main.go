package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/contract"
	llmx "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/llm"
	notifyx "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/notify"
	"github.com/romulo94/poc-healthcare-appointment-chatbot/chat/orchestrator"
	recordsx "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/records"
	stagex "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/stage"
	statex "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/state"
	configx "github.com/romulo94/poc-healthcare-appointment-chatbot/pkg/config"
	logx "github.com/romulo94/poc-healthcare-appointment-chatbot/pkg/logger"
	qstashx "github.com/romulo94/poc-healthcare-appointment-chatbot/pkg/qstash"
	serverx "github.com/romulo94/poc-healthcare-appointment-chatbot/server"
)

type AppConfig struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" split_words:"true" default:":8000"`

	// Optional webhook for appointment status-change events.
	QStashURL     string `envconfig:"QSTASH_URL"`
	QStashToken   string `envconfig:"QSTASH_TOKEN"`
	NotifyWebhook string `envconfig:"NOTIFY_WEBHOOK"`

	SessionStoreRedis bool `envconfig:"SESSION_STORE_REDIS" default:"false"`
	RecordStorePG     bool `envconfig:"RECORD_STORE_PG" default:"false"`
	SeedSampleRecords bool `envconfig:"SEED_SAMPLE_RECORDS" default:"true"`
}

func main() {
	cli := flag.Bool("cli", false, "run an interactive chat session instead of the HTTP server")

	logCfg := configx.MustNew[logx.Config]("LOG")
	logx.Init(*logCfg)

	appCfg := configx.MustNew[AppConfig]("")
	ctx := context.Background()

	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	gateway, err := llmx.NewGateway(ctx, *llmCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize model gateway")
	}

	directory, book := buildRecordStore(ctx, appCfg)
	sessionStore := buildSessionStore(appCfg)

	deps := stagex.Deps{
		Models:   gateway,
		Patrons:  directory,
		Book:     book,
		Notifier: buildNotifier(appCfg),
	}

	orch, err := orchestrator.New(sessionStore, deps)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize orchestrator")
	}

	if *cli {
		runChatLoop(ctx, orch)
		return
	}

	srv := serverx.New(orch)
	if err := srv.ListenAndServe(appCfg.HTTPAddr); err != nil {
		log.Fatal().Err(err).Msg("chat server stopped")
	}
}

func buildRecordStore(ctx context.Context, cfg *AppConfig) (contractx.PatronDirectory, contractx.AppointmentBook) {
	if cfg.RecordStorePG {
		pgCfg := configx.MustNew[recordsx.PostgresConfig]("POSTGRES")
		store, err := recordsx.NewPostgresStore(*pgCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("initialize postgres record store")
		}
		if cfg.SeedSampleRecords {
			if err := store.Seed(ctx, time.Now()); err != nil {
				log.Fatal().Err(err).Msg("seed record store")
			}
		}
		return store, store
	}

	store := recordsx.NewSeededInMemoryStore(time.Now())
	log.Info().Msg("using in-memory record store with sample data")
	return store, store
}

func buildSessionStore(cfg *AppConfig) statex.Store {
	if cfg.SessionStoreRedis {
		redisCfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS")
		store, err := statex.NewUpstashRedisStore(*redisCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("initialize redis session store")
		}
		return store
	}
	return statex.NewInMemoryStore()
}

func buildNotifier(cfg *AppConfig) contractx.Notifier {
	if cfg.QStashURL == "" || cfg.QStashToken == "" || cfg.NotifyWebhook == "" {
		return nil
	}
	client, err := qstashx.NewClient(qstashx.Config{URL: cfg.QStashURL, Token: cfg.QStashToken})
	if err != nil {
		log.Fatal().Err(err).Msg("initialize qstash client")
	}
	notifier, err := notifyx.NewQStashNotifier(client, cfg.NotifyWebhook)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize status notifier")
	}
	return notifier
}

func runChatLoop(ctx context.Context, orch *orchestrator.Orchestrator) {
	sessionID := uuid.NewString()
	fmt.Println("Healthcare Appointment Chatbot")
	fmt.Println("Type 'exit' to quit")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			return
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			fmt.Println("Goodbye!")
			return
		}

		result, err := orch.HandleTurn(ctx, sessionID, input)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		fmt.Printf("Bot: %s\n", result.Reply)
	}
}
