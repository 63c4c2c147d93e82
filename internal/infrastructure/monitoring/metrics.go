package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type BusinessMetrics struct {
	LoansCreatedTotal         *prometheus.CounterVec
	LoanPaymentsTotal         *prometheus.CounterVec
	LoansMarkedOverdueTotal   prometheus.Counter
	SilverSalesTotal          prometheus.Counter
	UdhariEntriesTotal        *prometheus.CounterVec
	PriceLookupsTotal         *prometheus.CounterVec
	EventsPublishedTotal      *prometheus.CounterVec
	NotificationsStoredTotal  *prometheus.CounterVec
	NotifierMessagesProcessed *prometheus.CounterVec
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pawn_ledger_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Business = BusinessMetrics{
		LoansCreatedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pawn_ledger_loans_created_total",
				Help: "Total number of pawn loans disbursed.",
			},
			[]string{"metal"},
		),
		LoanPaymentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pawn_ledger_loan_payments_total",
				Help: "Loan payment attempts by outcome.",
			},
			[]string{"status"},
		),
		LoansMarkedOverdueTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pawn_ledger_loans_marked_overdue_total",
				Help: "Loans moved to OVERDUE by the overdue sweep.",
			},
		),
		SilverSalesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pawn_ledger_silver_sales_total",
				Help: "Total number of silver sales recorded.",
			},
		),
		UdhariEntriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pawn_ledger_udhari_entries_total",
				Help: "Udhari ledger entries by kind.",
			},
			[]string{"kind"},
		),
		PriceLookupsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pawn_ledger_price_lookups_total",
				Help: "Metal price lookups by the source that answered them.",
			},
			[]string{"metal", "source"},
		),
		EventsPublishedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pawn_ledger_events_published_total",
				Help: "Domain events handed to the broker.",
			},
			[]string{"type", "status"},
		),
		NotificationsStoredTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pawn_ledger_notifications_stored_total",
				Help: "Customer notifications stored by the notifier.",
			},
			[]string{"event_type"},
		),
		NotifierMessagesProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pawn_ledger_notifier_messages_total",
				Help: "Messages consumed by the notifier by outcome.",
			},
			[]string{"outcome"},
		),
	}
)

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

// ObserveDBQuery is meant to be deferred with a pointer to the caller's error.
func ObserveDBQuery(queryName string, start time.Time, err *error) {
	status := "success"
	if err != nil && *err != nil {
		status = "error"
	}
	RecordDBQuery(queryName, status, time.Since(start))
}

func RecordLoanCreated(metal string) {
	Business.LoansCreatedTotal.WithLabelValues(metal).Inc()
}

func RecordPayment(status string) {
	Business.LoanPaymentsTotal.WithLabelValues(status).Inc()
}

func RecordLoansMarkedOverdue(n int) {
	Business.LoansMarkedOverdueTotal.Add(float64(n))
}

func RecordSilverSale() {
	Business.SilverSalesTotal.Inc()
}

func RecordUdhariEntry(kind string) {
	Business.UdhariEntriesTotal.WithLabelValues(kind).Inc()
}

func RecordPriceLookup(metal, source string) {
	Business.PriceLookupsTotal.WithLabelValues(metal, source).Inc()
}

func RecordEventPublished(eventType, status string) {
	Business.EventsPublishedTotal.WithLabelValues(eventType, status).Inc()
}

func RecordNotificationStored(eventType string) {
	Business.NotificationsStoredTotal.WithLabelValues(eventType).Inc()
}

func RecordNotifierMessage(outcome string) {
	Business.NotifierMessagesProcessed.WithLabelValues(outcome).Inc()
}
