package pg_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/woodlands-thekkady/booking-flow/internal/adapters/pg"
)

func TestJournal_RecordAndResolve(t *testing.T) {
	if os.Getenv("BOOKINGFLOW_INTEGRATION") == "" {
		t.Skip("set BOOKINGFLOW_INTEGRATION to run container-backed tests")
	}

	ctx := context.Background()

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16",
			Env:          map[string]string{"POSTGRES_PASSWORD": "postgres", "POSTGRES_DB": "bookingflow"},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor:   wait.ForListeningPort("5432/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer pgContainer.Terminate(ctx)

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, "postgres://postgres:postgres@"+host+":"+port.Port()+"/bookingflow?sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()

	journal := pg.NewJournal(pool)
	if err := journal.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}

	rec := pg.ReconciliationRecord{
		ID:          uuid.New(),
		SessionID:   "sess-1",
		HoldGroupID: "hg-1",
		PaymentRef:  "pay_123",
		GuestName:   "Meera Nair",
		GuestEmail:  "meera@example.com",
		GuestPhone:  "9447021958",
		AmountMinor: 390000,
		Cause:       "backend returned 500 on confirm",
	}
	if err := journal.Record(ctx, rec); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	open, err := journal.Open(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 1 || open[0].HoldGroupID != "hg-1" || open[0].PaymentRef != "pay_123" {
		t.Fatalf("unexpected open entries %+v", open)
	}

	if err := journal.MarkResolved(ctx, rec.ID); err != nil {
		t.Fatal(err)
	}
	open, err = journal.Open(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 0 {
		t.Fatalf("expected no open entries after resolve, got %d", len(open))
	}

	if err := journal.MarkResolved(ctx, uuid.New()); err == nil {
		t.Fatal("expected error for unknown entry")
	}
}
