// Package testutil builds throwaway ledgers for tests.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/monorkin/living-power/internal/clock"
	"github.com/monorkin/living-power/internal/database"
	"github.com/monorkin/living-power/internal/integrity"
	"github.com/monorkin/living-power/internal/ledger"
)

// Epoch is the time every test clock starts at.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// DiscardLogger drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OpenDB opens a migrated sqlite database in the test's temp dir. The
// name distinguishes several databases within one test.
func OpenDB(t testing.TB, name string) *gorm.DB {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), name+".sqlite"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	t.Cleanup(func() {
		if err := database.Close(db); err != nil {
			t.Errorf("closing test database: %v", err)
		}
	})

	return db
}

// NewStore returns a ledger store with the production validation policy
// and a clock that ticks one second per read.
func NewStore(t testing.TB, name string) *ledger.Store {
	t.Helper()

	return ledger.NewStore(
		OpenDB(t, name),
		integrity.NewValidator(),
		ledger.WithClock(clock.Fake(Epoch, time.Second)),
		ledger.WithLogger(DiscardLogger()),
	)
}
