// internal/domain/campaign/repository.go
package campaign

import (
	"context"
	"time"
)

// Repository defines the operations the automation engine needs over persisted
// campaigns. Campaign creation and editing belong to the management API and
// are out of scope here.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Campaign, error)
	// ListDue returns ACTIVE campaigns whose start instant is not in the
	// future, ordered by creation time.
	ListDue(ctx context.Context, now time.Time) ([]*Campaign, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	Count(ctx context.Context) (int, error)
}
