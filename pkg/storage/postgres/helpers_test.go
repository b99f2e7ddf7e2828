package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"coinfeed/pkg/storage/postgres"

	"github.com/joho/godotenv"
)

// openTestClient connects to the database named by TEST_POSTGRES_DSN and
// resets the schema. Tests skip when no database is configured.
func openTestClient(t *testing.T) *postgres.PostgresClient {
	t.Helper()

	_ = godotenv.Load("../../../.env")

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	client, err := postgres.NewClient(dsn)
	if err != nil {
		t.Fatalf("failed to connect to DB: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.CreateSchema(ctx); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		_ = client.DropSchema(context.Background())
		_ = client.Close()
	})
	return client
}
