package postgres

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
)

var _ DBPool = (pgxmock.PgxPoolIface)(nil)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

const pgxmockExpectationsNotMetMsg = "there were unfulfilled expectations"

func newMockPool(t *testing.T) (context.Context, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to open a stub database connection: %v", err)
	}
	t.Cleanup(mockPool.Close)
	return context.Background(), mockPool
}

// anyArgs matches n arguments of any value.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}
