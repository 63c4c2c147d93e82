package event

import (
	"context"
	"log/slog"

	"pawn-ledger/internal/infrastructure/monitoring"
)

// NopPublisher drops events; used when no broker is configured.
type NopPublisher struct {
	logger *slog.Logger
}

var _ EventPublisher = (*NopPublisher)(nil)

func NewNopPublisher(logger *slog.Logger) *NopPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NopPublisher{logger: logger.With("component", "NopPublisher")}
}

func (p *NopPublisher) drop(ctx context.Context, routingKey string) error {
	p.logger.DebugContext(ctx, "Event dropped, no broker configured", slog.String("routingKey", routingKey))
	monitoring.RecordEventPublished(routingKey, "dropped")
	return nil
}

func (p *NopPublisher) PublishCustomerCreated(ctx context.Context, _ CustomerPayload) error {
	return p.drop(ctx, RoutingKeyCustomerCreated)
}

func (p *NopPublisher) PublishCustomerUpdated(ctx context.Context, _ CustomerPayload) error {
	return p.drop(ctx, RoutingKeyCustomerUpdated)
}

func (p *NopPublisher) PublishLoanCreated(ctx context.Context, _ LoanPayload) error {
	return p.drop(ctx, RoutingKeyLoanCreated)
}

func (p *NopPublisher) PublishLoanPayment(ctx context.Context, _ LoanPaymentPayload) error {
	return p.drop(ctx, RoutingKeyLoanPayment)
}

func (p *NopPublisher) PublishLoanClosed(ctx context.Context, _ LoanPayload) error {
	return p.drop(ctx, RoutingKeyLoanClosed)
}

func (p *NopPublisher) PublishLoanOverdue(ctx context.Context, _ LoanOverduePayload) error {
	return p.drop(ctx, RoutingKeyLoanOverdue)
}

func (p *NopPublisher) PublishSilverSold(ctx context.Context, _ SilverSalePayload) error {
	return p.drop(ctx, RoutingKeySilverSold)
}

func (p *NopPublisher) PublishUdhariRecorded(ctx context.Context, _ UdhariPayload) error {
	return p.drop(ctx, RoutingKeyUdhariRecorded)
}

func (p *NopPublisher) PublishPriceUpdated(ctx context.Context, _ PricePayload) error {
	return p.drop(ctx, RoutingKeyPriceUpdated)
}
