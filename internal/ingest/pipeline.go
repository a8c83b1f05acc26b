package ingest

import (
	"context"
	"time"

	"leadbridge/internal/crm"
	"leadbridge/internal/ledger"
	"leadbridge/internal/sourceapi"
	"leadbridge/platform/apperr"
	"leadbridge/platform/logger"
)

// LeadFetcher pulls a day's raw records for a source. Satisfied by
// sourceapi.Client.
type LeadFetcher interface {
	FetchLeads(ctx context.Context, source sourceapi.SourceType, day time.Time) ([]sourceapi.RawLead, error)
}

// DealCreator submits mapped deals to the CRM. Satisfied by crm.Client.
type DealCreator interface {
	CreateDeal(ctx context.Context, fields crm.DealFields) (string, error)
}

// SourceReport summarizes one source's portion of a run.
type SourceReport struct {
	Source      sourceapi.SourceType
	Fetched     int
	Created     int
	Skipped     int
	Failed      int
	FetchFailed bool
}

// RunReport summarizes a full pipeline run.
type RunReport struct {
	Sources        []SourceReport
	LedgerDegraded bool
}

// Clean reports whether the run finished without fetch failures, lead
// failures or ledger write failures. Skip-only runs are clean.
func (r RunReport) Clean() bool {
	if r.LedgerDegraded {
		return false
	}
	for _, s := range r.Sources {
		if s.FetchFailed || s.Failed > 0 {
			return false
		}
	}
	return true
}

// Pipeline drives per-lead ingestion: dedup check, normalization, owner and
// contact resolution, field mapping, deal creation, call enrichment, ledger
// append. Leads are processed strictly sequentially in fetch order.
type Pipeline struct {
	fetcher    LeadFetcher
	owners     *OwnerResolver
	contacts   *ContactResolver
	fields     *FieldMapper
	deals      DealCreator
	recordings *RecordingAttacher
	ledger     *ledger.Ledger
	sources    []sourceapi.SourceType
	log        *logger.Logger
}

// NewPipeline wires the pipeline for one campaign.
func NewPipeline(
	fetcher LeadFetcher,
	owners *OwnerResolver,
	contacts *ContactResolver,
	fields *FieldMapper,
	deals DealCreator,
	recordings *RecordingAttacher,
	processed *ledger.Ledger,
	sources []sourceapi.SourceType,
	log *logger.Logger,
) *Pipeline {
	return &Pipeline{
		fetcher:    fetcher,
		owners:     owners,
		contacts:   contacts,
		fields:     fields,
		deals:      deals,
		recordings: recordings,
		ledger:     processed,
		sources:    sources,
		log:        log,
	}
}

// Run ingests all configured sources for the given day. A fetch failure
// aborts only that source; a failure in any per-lead stage aborts only that
// lead, which stays off the ledger and is retried whole on the next run.
func (p *Pipeline) Run(ctx context.Context, day time.Time) RunReport {
	var report RunReport

	// The phone cache is scoped to a single run.
	p.contacts.Reset()

	for _, source := range p.sources {
		report.Sources = append(report.Sources, p.runSource(ctx, source, day))
	}

	report.LedgerDegraded = p.ledger.Degraded()
	return report
}

func (p *Pipeline) runSource(ctx context.Context, source sourceapi.SourceType, day time.Time) SourceReport {
	report := SourceReport{Source: source}
	log := p.log.WithSource(string(source))

	raws, err := p.fetcher.FetchLeads(ctx, source, day)
	if err != nil {
		log.Error("source fetch failed, skipping source for this run", "error", err)
		report.FetchFailed = true
		return report
	}
	report.Fetched = len(raws)

	for _, raw := range raws {
		id := raw.ID.String()
		if id == "" {
			report.Failed++
			log.StageFailure("normalize", apperr.Validation("lead record has no id"))
			continue
		}

		llog := log.WithLead(id)

		if p.ledger.Contains(id) {
			report.Skipped++
			llog.Info("duplicate lead skipped")
			continue
		}

		if err := p.ingestLead(ctx, source, raw, llog); err != nil {
			report.Failed++
			continue
		}
		report.Created++

		// Appended only after the lead fully completes: a crash between
		// deal creation and this write reprocesses the lead next run.
		if err := p.ledger.Append(id); err != nil {
			llog.Warn("ledger append failed, continuing with in-memory dedup", "error", err)
		}
	}

	log.Info("source ingestion finished",
		"fetched", report.Fetched,
		"created", report.Created,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return report
}

// ingestLead is the per-lead unit of work, logging through a lead-scoped
// logger. Every collaborator failure is logged with its stage and
// contained here.
func (p *Pipeline) ingestLead(ctx context.Context, source sourceapi.SourceType, raw sourceapi.RawLead, log *logger.Logger) error {
	lead := Normalize(raw)

	ownerID := p.owners.Resolve(ctx, lead)

	contactID, err := p.contacts.Resolve(ctx, lead, ownerID, source)
	if err != nil {
		log.StageFailure("contact", err)
		return err
	}

	var call *CallDetails
	if source == sourceapi.SourceCall && raw.DownloadURL != "" {
		details := CallDetailsFromRaw(raw)
		call = &details
	}

	fields := p.fields.Map(ctx, lead, ownerID, contactID, source, call)

	dealID, err := p.deals.CreateDeal(ctx, fields)
	if err != nil {
		log.StageFailure("deal", err)
		return err
	}
	log.Info("deal created", "deal_id", dealID, "owner_id", ownerID, "contact_id", contactID)

	if source == sourceapi.SourceCall {
		// Enrichment only: the deal exists, so a failure here must not
		// push the lead back into the next run.
		if err := p.recordings.Attach(ctx, raw, lead, ownerID, dealID); err != nil {
			log.Warn("call enrichment failed, deal kept without recording", "deal_id", dealID, "error", err)
		}
	}

	return nil
}
