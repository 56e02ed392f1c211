package task

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/vedant-labs/backend-bazaar/internal/auth"
	"github.com/vedant-labs/backend-bazaar/internal/common"
	"github.com/vedant-labs/backend-bazaar/internal/order"
)

// OrderSource loads the order a task refers to.
type OrderSource interface {
	GetByID(ctx context.Context, id string) (order.Order, error)
}

// AccountSource resolves the recipient for a task.
type AccountSource interface {
	AccountByID(ctx context.Context, id string) (auth.Account, error)
}

// Handlers processes queued email work.
type Handlers struct {
	Orders   OrderSource
	Accounts AccountSource
	Mail     common.EmailSender
	Currency string
	Log      zerolog.Logger
}

// Register attaches all task handlers to the mux.
func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeOrderConfirmation, h.HandleOrderConfirmation)
	mux.HandleFunc(TypePasswordReset, h.HandlePasswordReset)
}

// HandleOrderConfirmation sends the order confirmation email.
func (h *Handlers) HandleOrderConfirmation(ctx context.Context, t *asynq.Task) error {
	var payload OrderConfirmationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal order confirmation payload: %w", err)
	}
	o, err := h.Orders.GetByID(ctx, payload.OrderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", payload.OrderID, err)
	}
	account, err := h.Accounts.AccountByID(ctx, payload.UserID)
	if err != nil {
		return fmt.Errorf("load account %s: %w", payload.UserID, err)
	}
	subject := fmt.Sprintf("Order %s confirmed", o.ID)
	body := h.confirmationBody(o, account.Name)
	if err := h.Mail.Send(account.Email, subject, body); err != nil {
		return fmt.Errorf("send confirmation email: %w", err)
	}
	h.Log.Info().Str("order_id", o.ID).Str("email", account.Email).Msg("order confirmation sent")
	return nil
}

// HandlePasswordReset sends a prepared password reset email.
func (h *Handlers) HandlePasswordReset(ctx context.Context, t *asynq.Task) error {
	var payload PasswordResetPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal password reset payload: %w", err)
	}
	if err := h.Mail.Send(payload.Email, payload.Subject, payload.HTML); err != nil {
		return fmt.Errorf("send password reset email: %w", err)
	}
	return nil
}

func (h *Handlers) confirmationBody(o order.Order, name string) string {
	currency := h.Currency
	if currency == "" {
		currency = "INR"
	}
	greeting := "Hi"
	if name != "" {
		greeting = fmt.Sprintf("Hi %s", name)
	}
	body := fmt.Sprintf("%s,\n\nThanks for your order.\n\nOrder ID: %s\nPayment method: %s\nSubtotal: %d %s\n", greeting, o.ID, o.Method, o.Subtotal, currency)
	if o.Discount > 0 {
		body += fmt.Sprintf("Discount: -%d %s\n", o.Discount, currency)
	}
	if o.CouponCode != "" {
		body += fmt.Sprintf("Coupon: %s\n", o.CouponCode)
	}
	if o.CODFee > 0 {
		body += fmt.Sprintf("Cash on delivery fee: %d %s\n", o.CODFee, currency)
	}
	if o.GiftWrapFee > 0 {
		body += fmt.Sprintf("Gift wrap: %d %s\n", o.GiftWrapFee, currency)
	}
	body += fmt.Sprintf("Total: %d %s\n\nWe will email you again once the order ships.\n", o.Total, currency)
	return body
}
