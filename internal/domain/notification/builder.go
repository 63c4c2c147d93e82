package notification

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pawn-ledger/internal/event"
	"pawn-ledger/internal/pkg/money"

	"github.com/shopspring/decimal"
)

var (
	ErrUnsupportedEvent = errors.New("event type has no notification")
	ErrMalformedPayload = errors.New("malformed event payload")
)

// SupportedEvents are the routing keys the notifier binds.
var SupportedEvents = []string{
	event.RoutingKeyLoanCreated,
	event.RoutingKeyLoanPayment,
	event.RoutingKeyLoanClosed,
	event.RoutingKeyLoanOverdue,
	event.RoutingKeyUdhariRecorded,
}

const dateLayout = "02 Jan 2006"

type Builder struct {
	ShopName string
}

func NewBuilder(shopName string) *Builder {
	return &Builder{ShopName: shopName}
}

func rupees(paise int64) string {
	return "Rs " + money.Paise(paise).String()
}

func date(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// Build renders the reminder for one event envelope.
func (b *Builder) Build(env event.RawEnvelope) (*Notification, error) {
	var (
		customerID int64
		msg        string
	)

	switch env.Type {
	case event.RoutingKeyLoanCreated, event.RoutingKeyLoanClosed:
		var p event.LoanPayload
		if err := decode(env, &p); err != nil {
			return nil, err
		}
		customerID = p.CustomerID
		if env.Type == event.RoutingKeyLoanCreated {
			msg = fmt.Sprintf("Your %s loan %s of %s is active at %s%% a month. Due date %s.",
				metalWord(p.Metal), p.LoanNumber, rupees(p.PrincipalAmount), monthlyRate(p.InterestRateBps), date(p.DueDate))
		} else {
			msg = fmt.Sprintf("Loan %s is fully settled and closed. Please collect your pledged items.", p.LoanNumber)
		}

	case event.RoutingKeyLoanPayment:
		var p event.LoanPaymentPayload
		if err := decode(env, &p); err != nil {
			return nil, err
		}
		customerID = p.CustomerID
		msg = fmt.Sprintf("Received %s against loan %s (receipt %s). Interest paid up to %s, balance %s.",
			rupees(p.Amount), p.LoanNumber, p.ReceiptNumber, date(p.PaidThrough), rupees(p.BalanceAfter))

	case event.RoutingKeyLoanOverdue:
		var p event.LoanOverduePayload
		if err := decode(env, &p); err != nil {
			return nil, err
		}
		customerID = p.CustomerID
		msg = fmt.Sprintf("Loan %s is overdue. Interest is paid up to %s and %s principal is outstanding. Please visit the shop.",
			p.LoanNumber, date(p.InterestPaidThrough), rupees(p.OutstandingBalance))

	case event.RoutingKeyUdhariRecorded:
		var p event.UdhariPayload
		if err := decode(env, &p); err != nil {
			return nil, err
		}
		customerID = p.CustomerID
		if p.Kind == "RECEIVED" {
			msg = fmt.Sprintf("Received %s towards your udhari. Balance %s.", rupees(p.Amount), rupees(p.BalanceAfter))
		} else {
			msg = fmt.Sprintf("%s added to your udhari on %s. Balance %s.", rupees(p.Amount), date(p.TxnDate), rupees(p.BalanceAfter))
		}

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEvent, env.Type)
	}

	if customerID <= 0 {
		return nil, fmt.Errorf("%w: %s has no customer", ErrMalformedPayload, env.Type)
	}
	if b.ShopName != "" {
		msg = b.ShopName + ": " + msg
	}
	return &Notification{
		CustomerID: customerID,
		EventID:    env.EventID,
		EventType:  env.Type,
		Channel:    ChannelSMS,
		Message:    msg,
		Status:     StatusPending,
	}, nil
}

func decode(env event.RawEnvelope, v any) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("%w: %s has no payload", ErrMalformedPayload, env.Type)
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedPayload, env.Type, err)
	}
	return nil
}

func metalWord(metal string) string {
	if metal == "SILVER" {
		return "silver"
	}
	return "gold"
}

// monthlyRate renders basis points as a percentage, 150 -> "1.50".
func monthlyRate(bps int64) string {
	return decimal.New(bps, -2).StringFixed(2)
}
