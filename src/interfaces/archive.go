package interfaces

import (
	"context"

	"portfolio-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// IArchive records successful refresh payloads (database rows, pub/sub messages).
// -----------------------------------------------------------------------------

type IArchive interface {
	Archive(ctx context.Context, payload models.MArchivedPayload) error
}
