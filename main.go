package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	archivex "github.com/c1do1/whatsapp-support/agent/archive"
	contractx "github.com/c1do1/whatsapp-support/agent/contract"
	coordinatorx "github.com/c1do1/whatsapp-support/agent/coordinator"
	gatewayx "github.com/c1do1/whatsapp-support/agent/gateway"
	knowledgex "github.com/c1do1/whatsapp-support/agent/knowledge"
	ladderx "github.com/c1do1/whatsapp-support/agent/ladder"
	operatorx "github.com/c1do1/whatsapp-support/agent/operator"
	configx "github.com/c1do1/whatsapp-support/pkg/config"
	"github.com/c1do1/whatsapp-support/pkg/helpdesk"
	_ "github.com/c1do1/whatsapp-support/pkg/logger/autoload"
	openaix "github.com/c1do1/whatsapp-support/pkg/openai"
	"github.com/c1do1/whatsapp-support/pkg/whatsapp"
)

type AppConfig struct {
	// ChannelMode selects the user transport: "terminal" for the local
	// console demo, "webhook" for the WhatsApp deployment.
	ChannelMode string `envconfig:"CHANNEL_MODE" default:"terminal"`
	// HumanChannel selects how escalations reach a person: "terminal"
	// prompts on this process's console, "helpdesk" opens tickets.
	HumanChannel string `envconfig:"HUMAN_CHANNEL" default:"terminal"`
}

func main() {
	appCfg := configx.MustLoad[AppConfig]("")
	openaiCfg := configx.MustLoad[openaix.Config]("OPENAI")
	ladderCfg := configx.MustLoad[ladderx.Config]("LADDER")
	coordCfg := configx.MustLoad[coordinatorx.Config]("COORDINATOR")
	archiveCfg := configx.MustLoad[archivex.Config]("ARCHIVE")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chatModel, err := openaiCfg.NewChatModel(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("chat model init failed")
	}

	var store contractx.SemanticStore
	if openaiCfg.VectorStoreID != "" {
		store, err = knowledgex.NewVectorStore(openaix.NewClient(*openaiCfg), openaiCfg.VectorStoreID)
		if err != nil {
			log.Fatal().Err(err).Msg("vector store init failed")
		}
		log.Info().Str("vector_store", openaiCfg.VectorStoreID).Msg("using vector knowledge store")
	} else {
		store = knowledgex.NewMemoryStore()
		log.Warn().Msg("no vector store configured, learned answers stay in memory")
	}

	registry, err := ladderx.NewRegistry(ctx, chatModel, store, *ladderCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("agent registry init failed")
	}
	ladder, err := ladderx.New(registry, *ladderCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("agent ladder init failed")
	}

	var archiver contractx.Archiver
	if archiveCfg.Enabled() {
		archive := archivex.New(*archiveCfg)
		defer archive.Close()
		if err := archive.Init(ctx); err != nil {
			log.Fatal().Err(err).Msg("archive init failed")
		}
		archiver = archive
	}

	var terminal *operatorx.TerminalChannel
	var humans contractx.HumanChannel
	switch appCfg.HumanChannel {
	case "helpdesk":
		helpdeskCfg := configx.MustLoad[helpdesk.Config]("HELPDESK")
		humans = operatorx.NewHelpdeskChannel(helpdesk.MustNew(*helpdeskCfg))
	case "terminal":
		terminal = operatorx.NewTerminalChannel()
		humans = terminal
	default:
		log.Fatal().Str("human_channel", appCfg.HumanChannel).Msg("unknown human channel")
	}

	switch appCfg.ChannelMode {
	case "webhook":
		runWebhook(ctx, ladder, store, humans, archiver, terminal, *coordCfg)
	case "terminal":
		runTerminal(ctx, ladder, store, humans, archiver, *coordCfg)
	default:
		log.Fatal().Str("channel_mode", appCfg.ChannelMode).Msg("unknown channel mode")
	}
}

// runWebhook serves the WhatsApp and helpdesk webhooks, draining the
// inbound queue with one worker so ladder runs stay serialized.
func runWebhook(
	ctx context.Context,
	ladder contractx.Ladder,
	store contractx.SemanticStore,
	humans contractx.HumanChannel,
	archiver contractx.Archiver,
	terminal *operatorx.TerminalChannel,
	coordCfg coordinatorx.Config,
) {
	whatsappCfg := configx.MustLoad[whatsapp.Config]("WHATSAPP")
	helpdeskCfg := configx.MustLoad[helpdesk.Config]("HELPDESK")
	gatewayCfg := configx.MustLoad[gatewayx.Config]("GATEWAY")

	users := gatewayx.NewWhatsAppChannel(whatsapp.MustNew(*whatsappCfg))
	coord, err := coordinatorx.New(coordinatorx.NewState(), ladder, store, users, humans, archiver, coordCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("coordinator init failed")
	}

	go coord.RunWorker(ctx)
	go coord.RunAnnouncer(ctx)
	if terminal != nil {
		triage := operatorx.NewTriage(terminal, coord.State(), coord, coordCfg.AnnounceInterval)
		go triage.Run(ctx)
	}

	handler := gatewayx.NewHandler(coord, coord, coord.State(), whatsappCfg.VerifyToken, helpdeskCfg.WebhookSecret)
	server := gatewayx.NewServer(handler, *gatewayCfg)
	if err := server.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("gateway stopped")
	}
}

// runTerminal is the local conversation loop. One synthetic user,
// messages processed inline.
func runTerminal(
	ctx context.Context,
	ladder contractx.Ladder,
	store contractx.SemanticStore,
	humans contractx.HumanChannel,
	archiver contractx.Archiver,
	coordCfg coordinatorx.Config,
) {
	const consoleUser = "console"

	coord, err := coordinatorx.New(coordinatorx.NewState(), ladder, store, operatorx.NewConsoleUserChannel(), humans, archiver, coordCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("coordinator init failed")
	}

	fmt.Println("Escribe tu consulta (Ctrl+C para salir).")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("Tú: ")
		if !scanner.Scan() {
			return
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if err := coord.HandleInbound(ctx, consoleUser, text); err != nil {
			log.Error().Err(err).Msg("message handling failed")
		}
		if ctx.Err() != nil {
			return
		}
	}
}
