package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	// Cancel a pending transaction whose transfer never arrived
	TypeExpireTransaction = "payment:expire"
	// Periodic housekeeping: stale transactions, expired discount codes
	TypeHousekeepingSweep = "housekeeping:sweep"
)

// PaymentPayload is the payload for payment tasks
type PaymentPayload struct {
	TransactionID string `json:"transaction_id"`
}

// NewExpireTransactionTask creates a task to cancel a still-pending transaction
func NewExpireTransactionTask(transactionID string) (*asynq.Task, error) {
	payload, err := json.Marshal(PaymentPayload{
		TransactionID: transactionID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeExpireTransaction, payload), nil
}

// NewHousekeepingSweepTask creates the periodic housekeeping task
func NewHousekeepingSweepTask() *asynq.Task {
	return asynq.NewTask(TypeHousekeepingSweep, nil)
}

// ParsePaymentPayload parses a payment payload from an Asynq task
func ParsePaymentPayload(task *asynq.Task) (PaymentPayload, error) {
	var payload PaymentPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}
