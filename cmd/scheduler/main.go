package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"leadbridge/internal/crm"
	"leadbridge/internal/ingest"
	"leadbridge/internal/ledger"
	"leadbridge/internal/scheduler"
	"leadbridge/internal/sourceapi"
	"leadbridge/platform/config"
	"leadbridge/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	campaign, err := ingest.CampaignByName(cfg.GetCampaignName())
	if err != nil {
		log.Error("invalid campaign", "error", err)
		os.Exit(2)
	}

	processed, err := ledger.Load(cfg.GetLedgerPath(), log)
	if err != nil {
		log.Error("failed to load ledger", "error", err)
		os.Exit(1)
	}

	tokens := sourceapi.NewFileTokenSource(cfg, log)
	portal := sourceapi.NewClient(cfg, tokens, log)
	crmClient := crm.NewClient(cfg, log)

	sources := []sourceapi.SourceType{sourceapi.SourceCall, sourceapi.SourceEmail}
	if cfg.IsWhatsAppSourceEnabled() {
		sources = append(sources, sourceapi.SourceWhatsApp)
	}

	pipeline := ingest.NewPipeline(
		portal,
		ingest.NewOwnerResolver(crmClient, crmClient, campaign, log),
		ingest.NewContactResolver(crmClient, campaign, log),
		ingest.NewFieldMapper(crmClient, campaign, log),
		crmClient,
		ingest.NewRecordingAttacher(crmClient, portal, campaign, log),
		processed,
		sources,
		log,
	)

	worker, err := scheduler.NewWorker(cfg, pipeline, log)
	if err != nil {
		log.Error("failed to create scheduler worker", "error", err)
		os.Exit(1)
	}

	log.Info("starting lead sync scheduler",
		"campaign", campaign.Name,
		"cron", cfg.GetSyncCronSpec(),
		"queue", cfg.GetAsynqQueueName(),
	)

	worker.Run(ctx)
}
