package ingest

import (
	"context"
	"time"

	"github.com/AngelCh415/agentic-analyst/internal/utils"
)

var defaultBackoff = utils.NewBackoff(100*time.Millisecond, 2)

// GetJSONWithRetry decodes the JSON body at url into dst, retrying with
// exponential backoff and jitter.
func GetJSONWithRetry(ctx context.Context, c HTTPClient, url string, dst any) error {
	return defaultBackoff.Do(ctx, func(int) error {
		return getJSON(ctx, c, url, dst)
	})
}
