package storage

import (
	"fmt"

	"github.com/google/uuid"
)

// Blob key layout for run artifacts. Keys are forward-slash paths so they
// work unchanged as S3 keys and as local paths under the base directory.

// ScreenshotKey returns the blob key for the n-th screenshot of a run item.
func ScreenshotKey(runID uuid.UUID, itemIndex, n int) string {
	return fmt.Sprintf("runs/%s/%d/%d.png", runID, itemIndex, n)
}

// ItemLogKey returns the blob key for a run item's engine log.
func ItemLogKey(runID uuid.UUID, itemIndex int) string {
	return fmt.Sprintf("runs/%s/%d/engine.log", runID, itemIndex)
}

// RawOutputKey returns the blob key for the unparsed engine output kept
// alongside a failed run item.
func RawOutputKey(runID uuid.UUID, itemIndex int) string {
	return fmt.Sprintf("runs/%s/%d/raw_output.txt", runID, itemIndex)
}
