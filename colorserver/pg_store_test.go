package colorserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// openTestPool connects to TEST_DATABASE_URL, or starts a disposable postgres container.
func openTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in -short mode")
	}
	ctx := context.Background()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		ctr, err := postgres.Run(ctx, "postgres:15-alpine",
			postgres.WithDatabase("colorsync"),
			postgres.WithUsername("colorsync"),
			postgres.WithPassword("colorsync"),
			postgres.BasicWaitStrategies(),
		)
		if err != nil {
			t.Skipf("postgres container unavailable: %v", err)
		}
		t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })
		dbURL, err = ctr.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	}

	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestPGDocumentStore_RoundTrip(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()

	store, err := NewPGDocumentStore(ctx, pool, slog.Default())
	require.NoError(t, err)
	userID := "pg-user-" + time.Now().Format("150405.000000")
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM colorsync.documents WHERE user_id = $1`, userID)
	})

	svc := NewDocumentService(store, nil, slog.Default())
	require.Equal(t, BackendPostgres, svc.Status().Backend)

	_, err = svc.BatchSet(ctx, userID, DefaultCollection, &BatchSetRequest{
		Documents: []Document{colorDoc("b", "000000"), colorDoc("a", "FFFFFF")},
	})
	require.NoError(t, err)

	// upsert replaces data
	_, err = svc.BatchSet(ctx, userID, DefaultCollection, &BatchSetRequest{
		Documents: []Document{colorDoc("a", "123456")},
	})
	require.NoError(t, err)

	list, err := svc.List(ctx, userID, DefaultCollection)
	require.NoError(t, err)
	require.Len(t, list.Documents, 2)
	require.Equal(t, "a", list.Documents[0].ID)
	var data map[string]any
	require.NoError(t, json.Unmarshal(list.Documents[0].Data, &data))
	require.Equal(t, "123456", data["hexCode"])

	del, err := svc.Delete(ctx, userID, DefaultCollection, "a")
	require.NoError(t, err)
	require.True(t, del.Deleted)
	del, err = svc.Delete(ctx, userID, DefaultCollection, "a")
	require.NoError(t, err)
	require.False(t, del.Deleted)

	// schema init is idempotent
	_, err = NewPGDocumentStore(ctx, pool, slog.Default())
	require.NoError(t, err)
}

func TestTxRetry(t *testing.T) {
	require.True(t, isContention(&pgconn.PgError{Code: "40001"}))
	require.True(t, isContention(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "40P01"})))
	require.False(t, isContention(&pgconn.PgError{Code: "23505"}))
	require.False(t, isContention(errors.New("plain")))

	require.Equal(t, 10*time.Millisecond, defaultTxRetry.delay(1))
	require.Equal(t, 20*time.Millisecond, defaultTxRetry.delay(2))
	require.Equal(t, 500*time.Millisecond, defaultTxRetry.delay(10))

	policy := txRetry{attempts: 3, base: time.Millisecond, max: time.Millisecond}
	calls := 0
	err := policy.do(context.Background(), slog.Default(), "test", func(context.Context) error {
		calls++
		return &pgconn.PgError{Code: "40001"}
	})
	require.Error(t, err)
	require.Equal(t, 3, calls)

	calls = 0
	err = policy.do(context.Background(), slog.Default(), "test", func(context.Context) error {
		calls++
		if calls == 1 {
			return &pgconn.PgError{Code: "55P03"}
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, calls)

	calls = 0
	err = policy.do(context.Background(), slog.Default(), "test", func(context.Context) error {
		calls++
		return errors.New("constraint")
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}
