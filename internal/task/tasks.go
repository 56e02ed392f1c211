package task

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type names routed through asynq.
const (
	TypeOrderConfirmation = "email:order_confirmation"
	TypePasswordReset     = "email:password_reset"
)

// Queue names in priority order.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// OrderConfirmationPayload identifies the order to confirm by email.
type OrderConfirmationPayload struct {
	OrderID string `json:"orderId"`
	UserID  string `json:"userId"`
}

// PasswordResetPayload carries a prepared reset email.
type PasswordResetPayload struct {
	Email   string `json:"email"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// NewOrderConfirmationTask builds the asynq task for an order confirmation email.
func NewOrderConfirmationTask(orderID, userID string) (*asynq.Task, error) {
	payload, err := json.Marshal(OrderConfirmationPayload{OrderID: orderID, UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("marshal order confirmation payload: %w", err)
	}
	return asynq.NewTask(TypeOrderConfirmation, payload, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// NewPasswordResetTask builds the asynq task for a password reset email.
func NewPasswordResetTask(email, subject, html string) (*asynq.Task, error) {
	payload, err := json.Marshal(PasswordResetPayload{Email: email, Subject: subject, HTML: html})
	if err != nil {
		return nil, fmt.Errorf("marshal password reset payload: %w", err)
	}
	return asynq.NewTask(TypePasswordReset, payload, asynq.Queue(QueueCritical), asynq.MaxRetry(3)), nil
}
