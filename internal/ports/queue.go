package ports

import (
	"context"

	"github.com/bft-labs/feedship/internal/domain"
)

// UploadQueue holds locally queued records until the backend accepts them.
type UploadQueue interface {
	// Pending returns up to limit queued records of a category, oldest first.
	// A limit of zero or less returns every record.
	Pending(ctx context.Context, category domain.Category, limit int) ([]domain.QueuedRecord, error)

	// Ack removes records that were accepted by the backend.
	Ack(ctx context.Context, ids []uint) error
}
