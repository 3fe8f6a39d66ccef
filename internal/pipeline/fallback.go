package pipeline

import (
	"context"
	"fmt"

	"github.com/streamvault/media-pipeline/pkg/logger"
)

// Strategy is one ordered attempt in a progressive fallback ladder. Run must
// leave no partial output behind on failure; the driver assumes each attempt
// starts from a clean slate.
type Strategy struct {
	Name string
	Run  func(ctx context.Context) error
}

// TryEach runs strategies in order and returns the name of the first one
// that succeeds. Attempt failures are expected and logged at debug level;
// only full exhaustion is an error.
func TryEach(ctx context.Context, log logger.Logger, what string, strategies []Strategy) (string, error) {
	var lastErr error
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := s.Run(ctx); err != nil {
			log.Debugf("%s: strategy %q failed: %v", what, s.Name, err)
			lastErr = err
			continue
		}
		return s.Name, nil
	}
	return "", fmt.Errorf("%s: all %d strategies exhausted: %w", what, len(strategies), lastErr)
}
