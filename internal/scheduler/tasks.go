package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskLeadSyncRun = "leadsync.run"

// dateLayout is the wire format for the run date.
const dateLayout = "2006-01-02"

// LeadSyncRunPayload selects the day a run ingests. An empty date means the
// worker's current day.
type LeadSyncRunPayload struct {
	Date string `json:"date,omitempty"`
}

// Day resolves the payload date, defaulting to now for periodic runs.
func (p LeadSyncRunPayload) Day(now time.Time) (time.Time, error) {
	if p.Date == "" {
		return now, nil
	}
	return time.Parse(dateLayout, p.Date)
}

func NewLeadSyncRunTask(payload LeadSyncRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadSyncRun, data), nil
}

func ParseLeadSyncRunPayload(task *asynq.Task) (LeadSyncRunPayload, error) {
	var payload LeadSyncRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadSyncRunPayload{}, err
	}
	return payload, nil
}
