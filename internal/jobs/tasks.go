package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const TaskTypeLeadAppend = "lead:append"

const QueueLeads = "leads"

// LeadAppendPayload carries a lead captured at the direction step.
type LeadAppendPayload struct {
	FIO       string `json:"fio"`
	Phone     string `json:"phone"`
	Direction string `json:"direction"`
}

// NewLeadAppendTask builds the task delivered to the lead sink by the worker.
func NewLeadAppendTask(payload LeadAppendPayload, queue string, maxRetry int) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal lead payload: %w", err)
	}

	if queue == "" {
		queue = QueueLeads
	}

	opts := []asynq.Option{asynq.Queue(queue)}
	if maxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(maxRetry))
	}

	return asynq.NewTask(TaskTypeLeadAppend, data, opts...), nil
}

// DecodeLeadAppendPayload parses the payload of a lead append task.
func DecodeLeadAppendPayload(t *asynq.Task) (LeadAppendPayload, error) {
	var payload LeadAppendPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return LeadAppendPayload{}, fmt.Errorf("decode lead payload: %w", err)
	}
	return payload, nil
}
