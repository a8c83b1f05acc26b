package ingest

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"

	"leadbridge/internal/crm"
	"leadbridge/internal/sourceapi"
	"leadbridge/platform/logger"
)

// Telephony registers, finishes and enriches external calls in the CRM.
// Satisfied by crm.Client.
type Telephony interface {
	RegisterExternalCall(ctx context.Context, params crm.RegisterCallParams) (string, error)
	FinishExternalCall(ctx context.Context, params crm.FinishCallParams) error
	AttachCallRecording(ctx context.Context, callID, filename, contentBase64 string) error
}

// RecordingDownloader fetches call recordings from the portal.
// Satisfied by sourceapi.Client.
type RecordingDownloader interface {
	DownloadRecording(ctx context.Context, recordingURL string) ([]byte, error)
}

// RecordingAttacher registers a phone lead's call against its new deal and
// attaches the downloaded recording. Failures here are enrichment-only; the
// deal already exists and the orchestrator treats them as non-fatal.
type RecordingAttacher struct {
	telephony  Telephony
	downloader RecordingDownloader
	campaign   CampaignConfig
	log        *logger.Logger
}

// NewRecordingAttacher creates a recording attacher for the campaign.
func NewRecordingAttacher(telephony Telephony, downloader RecordingDownloader, campaign CampaignConfig, log *logger.Logger) *RecordingAttacher {
	return &RecordingAttacher{
		telephony:  telephony,
		downloader: downloader,
		campaign:   campaign,
		log:        log,
	}
}

// Attach runs the register → finish → attach sequence for a call lead.
// Leads without a recording URL are a no-op. A registration that returns no
// call ID skips the finish/attach steps silently: the CRM accepted the call
// but opened no telephony session for it.
func (a *RecordingAttacher) Attach(ctx context.Context, raw sourceapi.RawLead, lead LeadData, ownerID, dealID string) error {
	if raw.DownloadURL == "" {
		return nil
	}

	content, err := a.downloader.DownloadRecording(ctx, raw.DownloadURL)
	if err != nil {
		return fmt.Errorf("download recording: %w", err)
	}

	callID, err := a.telephony.RegisterExternalCall(ctx, crm.RegisterCallParams{
		UserPhoneInner: raw.User.Public.Phone,
		UserID:         ownerID,
		PhoneNumber:    lead.ClientPhone,
		CallStartDate:  raw.CallStart,
		CRMCreate:      false,
		CRMSource:      a.campaign.TelephonySource,
		CRMEntityType:  "DEAL",
		CRMEntityID:    dealID,
		Show:           false,
		Type:           2,
		LineNumber:     a.campaign.TelephonyLinePrefix + raw.User.Public.Phone,
	})
	if err != nil {
		return fmt.Errorf("register call: %w", err)
	}
	if callID == "" {
		a.log.Info("call registered without call id, skipping recording", "lead_id", lead.ID, "deal_id", dealID)
		return nil
	}

	if err := a.telephony.FinishExternalCall(ctx, crm.FinishCallParams{
		CallID:     callID,
		UserID:     ownerID,
		Duration:   raw.TalkTimeSeconds(),
		StatusCode: 200,
	}); err != nil {
		return fmt.Errorf("finish call: %w", err)
	}

	filename := fmt.Sprintf("%s|call-%s.mp3", lead.ID, uuid.NewString())
	encoded := base64.StdEncoding.EncodeToString(content)
	if err := a.telephony.AttachCallRecording(ctx, callID, filename, encoded); err != nil {
		return fmt.Errorf("attach recording: %w", err)
	}

	a.log.Info("call recording attached", "lead_id", lead.ID, "deal_id", dealID, "call_id", callID)
	return nil
}
