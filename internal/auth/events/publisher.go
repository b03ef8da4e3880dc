package events

import (
	"context"

	"github.com/medstock/medstock-backend/pkg/logger"
	"github.com/medstock/medstock-backend/pkg/messaging"
)

// AuthEventPublisher publishes auth events. A nil publisher drops them.
type AuthEventPublisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewAuthEventPublisher creates a publisher on the auth exchange
func NewAuthEventPublisher(rmq *messaging.RabbitMQ, source string, log *logger.Logger) (*AuthEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeAuthEvents, source, log)
	if err != nil {
		return nil, err
	}
	return NewWithPublisher(publisher, log), nil
}

// NewWithPublisher wraps an existing EventPublisher
func NewWithPublisher(publisher messaging.EventPublisher, log *logger.Logger) *AuthEventPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthEventPublisher{
		publisher: publisher,
		logger:    log.WithComponent("auth-events"),
	}
}

// PublishVoucherIssued hands a setup voucher to the mailer. The error is
// returned so the caller can fall back to printing the voucher.
func (p *AuthEventPublisher) PublishVoucherIssued(ctx context.Context, email, voucher string) error {
	if p == nil {
		return nil
	}
	return p.publisher.Publish(ctx, messaging.EventVoucherIssued, messaging.VoucherIssuedEvent{
		Email:   email,
		Voucher: voucher,
	})
}
