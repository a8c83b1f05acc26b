package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadbridge/internal/crm"
	"leadbridge/internal/ingest"
	"leadbridge/internal/ledger"
	"leadbridge/internal/scheduler"
	"leadbridge/internal/sourceapi"
	"leadbridge/platform/config"
	"leadbridge/platform/logger"
)

func main() {
	var dateArg string
	var enqueue bool
	flag.StringVar(&dateArg, "date", "", "ingestion day as YYYY-MM-DD (default: today)")
	flag.BoolVar(&enqueue, "enqueue", false, "queue the run for the scheduler worker instead of executing it")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)

	day := time.Now()
	if dateArg != "" {
		parsed, err := time.Parse("2006-01-02", dateArg)
		if err != nil {
			log.Error("invalid -date value", "date", dateArg, "error", err)
			os.Exit(2)
		}
		day = parsed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if enqueue {
		enqueueRun(ctx, cfg, dateArg, log)
		return
	}

	campaign, err := ingest.CampaignByName(cfg.GetCampaignName())
	if err != nil {
		log.Error("invalid campaign", "error", err)
		os.Exit(2)
	}

	log.Info("starting lead sync", "campaign", campaign.Name, "date", day.Format("2006-01-02"))

	processed, err := ledger.Load(cfg.GetLedgerPath(), log)
	if err != nil {
		log.Error("failed to load ledger", "error", err)
		os.Exit(1)
	}
	log.Info("ledger loaded", "path", cfg.GetLedgerPath(), "entries", processed.Len())

	pipeline := buildPipeline(cfg, campaign, processed, log)

	report := pipeline.Run(ctx, day)

	if !report.Clean() {
		log.Error("lead sync finished with failures")
		os.Exit(1)
	}
	log.Info("lead sync finished")
}

// enqueueRun hands the run to the scheduler worker instead of executing it
// inline. An empty date means the worker's current day.
func enqueueRun(ctx context.Context, cfg *config.Config, date string, log *logger.Logger) {
	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to create scheduler client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	if err := client.EnqueueLeadSyncRun(ctx, scheduler.LeadSyncRunPayload{Date: date}); err != nil {
		log.Error("failed to enqueue lead sync run", "error", err)
		os.Exit(1)
	}

	log.Info("lead sync run queued", "date", date, "queue", cfg.GetAsynqQueueName())
}

func buildPipeline(cfg *config.Config, campaign ingest.CampaignConfig, processed *ledger.Ledger, log *logger.Logger) *ingest.Pipeline {
	tokens := sourceapi.NewFileTokenSource(cfg, log)
	portal := sourceapi.NewClient(cfg, tokens, log)
	crmClient := crm.NewClient(cfg, log)

	sources := []sourceapi.SourceType{sourceapi.SourceCall, sourceapi.SourceEmail}
	if cfg.IsWhatsAppSourceEnabled() {
		sources = append(sources, sourceapi.SourceWhatsApp)
	}

	return ingest.NewPipeline(
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
}
