package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/medstock/medstock-backend/pkg/database"
)

var (
	// Shared across all integration tests in a package
	globalContainer *PostgresContainer
	globalDB        *database.DB
	containerOnce   sync.Once
	containerErr    error
)

// IntegrationDB returns a migrated, empty database backed by a shared
// testcontainer. It skips the test in -short mode.
//
// Usage:
//
//	func TestBatchLifecycle(t *testing.T) {
//	    db := testutil.IntegrationDB(t)
//	    svc := service.NewInventoryService(db, ...)
//	}
func IntegrationDB(t *testing.T) *database.DB {
	t.Helper()
	SkipIfShort(t)

	ctx := context.Background()
	containerOnce.Do(func() {
		// Some docker host lookups panic when no daemon is reachable.
		defer func() {
			if p := recover(); p != nil {
				containerErr = fmt.Errorf("docker unavailable: %v", p)
			}
		}()
		globalContainer, containerErr = NewPostgresContainer(ctx, DefaultPostgresConfig())
		if containerErr != nil {
			return
		}
		globalDB, containerErr = globalContainer.Connect(ctx)
	})
	if containerErr != nil {
		t.Skipf("postgres testcontainer unavailable: %v", containerErr)
	}

	if err := Truncate(ctx, globalDB); err != nil {
		t.Fatalf("failed to truncate test database: %v", err)
	}

	return globalDB
}

// TerminateContainer terminates the shared container.
// Only call this in TestMain after all tests have completed.
func TerminateContainer(ctx context.Context) {
	if globalContainer != nil {
		globalContainer.Terminate(ctx)
	}
}
