// Package notification turns ledger events into customer reminder messages.
package notification

import (
	"context"
	"time"
)

type Channel string

const ChannelSMS Channel = "SMS"

type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

type Notification struct {
	ID         int64
	CustomerID int64
	EventID    string
	EventType  string
	Channel    Channel
	Message    string
	Status     Status
	CreatedAt  time.Time
}

type Repository interface {
	// Save is idempotent per EventID: a redelivered event is stored once.
	Save(ctx context.Context, n *Notification) (bool, error)
	ListByCustomer(ctx context.Context, customerID int64, limit int) ([]Notification, error)
}
