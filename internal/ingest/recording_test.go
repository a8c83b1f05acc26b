package ingest

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"leadbridge/internal/crm"
	"leadbridge/internal/sourceapi"
)

type attachedRecording struct {
	callID   string
	filename string
	content  string
}

type fakeTelephony struct {
	callID      string
	registerErr error
	finishErr   error
	attachErr   error
	registered  []crm.RegisterCallParams
	finished    []crm.FinishCallParams
	attached    []attachedRecording
}

func (f *fakeTelephony) RegisterExternalCall(_ context.Context, params crm.RegisterCallParams) (string, error) {
	if f.registerErr != nil {
		return "", f.registerErr
	}
	f.registered = append(f.registered, params)
	return f.callID, nil
}

func (f *fakeTelephony) FinishExternalCall(_ context.Context, params crm.FinishCallParams) error {
	if f.finishErr != nil {
		return f.finishErr
	}
	f.finished = append(f.finished, params)
	return nil
}

func (f *fakeTelephony) AttachCallRecording(_ context.Context, callID, filename, contentBase64 string) error {
	if f.attachErr != nil {
		return f.attachErr
	}
	f.attached = append(f.attached, attachedRecording{callID: callID, filename: filename, content: contentBase64})
	return nil
}

type fakeDownloader struct {
	content []byte
	err     error
	urls    []string
}

func (f *fakeDownloader) DownloadRecording(_ context.Context, recordingURL string) ([]byte, error) {
	f.urls = append(f.urls, recordingURL)
	return f.content, f.err
}

func callLead() (sourceapi.RawLead, LeadData) {
	raw := sourceapi.RawLead{
		ID:          "L1",
		CallStart:   "2026-08-29 10:00:00",
		TalkTime:    "00:02:45",
		DownloadURL: "https://cdn.example.com/rec.mp3",
	}
	raw.User.Public.Phone = "+971503333333"
	return raw, Normalize(raw)
}

func TestRecordingAttacherFullSequence(t *testing.T) {
	telephony := &fakeTelephony{callID: "CALL-1"}
	downloader := &fakeDownloader{content: []byte("audio bytes")}
	attacher := NewRecordingAttacher(telephony, downloader, testCampaign(t), testLogger())

	raw, lead := callLead()
	lead.ClientPhone = "+971501234567"
	if err := attacher.Attach(context.Background(), raw, lead, "1593", "D7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(downloader.urls) != 1 || downloader.urls[0] != raw.DownloadURL {
		t.Fatalf("expected one download of %q, got %v", raw.DownloadURL, downloader.urls)
	}

	reg := telephony.registered[0]
	if reg.CRMEntityType != "DEAL" || reg.CRMEntityID != "D7" {
		t.Fatalf("expected call registered against deal D7, got %+v", reg)
	}
	if reg.Type != 2 {
		t.Fatalf("expected inbound call type 2, got %d", reg.Type)
	}
	if reg.LineNumber != "PF +971503333333" {
		t.Fatalf("unexpected line number %q", reg.LineNumber)
	}

	fin := telephony.finished[0]
	if fin.CallID != "CALL-1" || fin.Duration != 165 || fin.StatusCode != 200 {
		t.Fatalf("unexpected finish params %+v", fin)
	}

	att := telephony.attached[0]
	if att.callID != "CALL-1" {
		t.Fatalf("expected attachment on CALL-1, got %q", att.callID)
	}
	if !strings.HasPrefix(att.filename, "L1|call-") || !strings.HasSuffix(att.filename, ".mp3") {
		t.Fatalf("unexpected recording filename %q", att.filename)
	}
	if att.content != base64.StdEncoding.EncodeToString([]byte("audio bytes")) {
		t.Fatalf("expected base64 recording body, got %q", att.content)
	}
}

func TestRecordingAttacherNoopWithoutURL(t *testing.T) {
	telephony := &fakeTelephony{callID: "CALL-1"}
	downloader := &fakeDownloader{}
	attacher := NewRecordingAttacher(telephony, downloader, testCampaign(t), testLogger())

	raw := sourceapi.RawLead{ID: "L1", CallStart: "2026-08-29 10:00:00"}
	if err := attacher.Attach(context.Background(), raw, Normalize(raw), "1593", "D7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(downloader.urls) != 0 || len(telephony.registered) != 0 {
		t.Fatalf("expected no telephony activity without a recording URL")
	}
}

func TestRecordingAttacherSkipsSilentlyWithoutCallID(t *testing.T) {
	telephony := &fakeTelephony{callID: ""}
	downloader := &fakeDownloader{content: []byte("audio")}
	attacher := NewRecordingAttacher(telephony, downloader, testCampaign(t), testLogger())

	raw, lead := callLead()
	if err := attacher.Attach(context.Background(), raw, lead, "1593", "D7"); err != nil {
		t.Fatalf("expected silent skip without a call id, got %v", err)
	}
	if len(telephony.finished) != 0 || len(telephony.attached) != 0 {
		t.Fatalf("expected no finish or attach without a call id")
	}
}

func TestRecordingAttacherPropagatesDownloadFailure(t *testing.T) {
	telephony := &fakeTelephony{callID: "CALL-1"}
	downloader := &fakeDownloader{err: errors.New("cdn down")}
	attacher := NewRecordingAttacher(telephony, downloader, testCampaign(t), testLogger())

	raw, lead := callLead()
	if err := attacher.Attach(context.Background(), raw, lead, "1593", "D7"); err == nil {
		t.Fatalf("expected error when download fails")
	}
	if len(telephony.registered) != 0 {
		t.Fatalf("expected no call registration after a failed download")
	}
}
