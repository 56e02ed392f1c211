package task

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
)

// Enqueuer pushes tasks onto the asynq queues.
type Enqueuer struct {
	Client *asynq.Client
}

// EnqueueOrderConfirmation schedules an order confirmation email.
func (e *Enqueuer) EnqueueOrderConfirmation(ctx context.Context, orderID, userID string) error {
	if e == nil || e.Client == nil {
		return errors.New("task enqueuer not configured")
	}
	t, err := NewOrderConfirmationTask(orderID, userID)
	if err != nil {
		return err
	}
	_, err = e.Client.EnqueueContext(ctx, t)
	return err
}

// EnqueuePasswordReset schedules a password reset email.
func (e *Enqueuer) EnqueuePasswordReset(ctx context.Context, email, subject, html string) error {
	if e == nil || e.Client == nil {
		return errors.New("task enqueuer not configured")
	}
	t, err := NewPasswordResetTask(email, subject, html)
	if err != nil {
		return err
	}
	_, err = e.Client.EnqueueContext(ctx, t)
	return err
}
