package test

import (
	"context"
	"os"
	"testing"

	"github.com/hrygo/wingman/internal/profile"
	"github.com/hrygo/wingman/store"
	"github.com/hrygo/wingman/store/db"
)

// NewTestingStore opens a migrated store for tests. It uses a SQLite file in a temporary
// directory unless DRIVER=postgres and POSTGRES_TEST_DSN are set.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()

	p := getTestingProfile(t)
	driver, err := db.NewDBDriver(p)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}
	st := store.New(driver, p)
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func getTestingProfile(t *testing.T) *profile.Profile {
	t.Helper()

	p := &profile.Profile{
		Mode:           "dev",
		Data:           t.TempDir(),
		Driver:         getDriverFromEnv(),
		StorageBackend: "local",
	}
	if p.Driver == "postgres" {
		p.DSN = os.Getenv("POSTGRES_TEST_DSN")
		if p.DSN == "" {
			t.Skip("POSTGRES_TEST_DSN is not set")
		}
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("invalid testing profile: %v", err)
	}
	return p
}

func getDriverFromEnv() string {
	if driver := os.Getenv("DRIVER"); driver != "" {
		return driver
	}
	return "sqlite"
}
