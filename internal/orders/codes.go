package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/jubileehq/jubilee-backend/pkg/logger"
)

type codeSequence interface {
	NextOrderCodeSeq(ctx context.Context) (int64, error)
}

// GenerateOrderCode builds the human-facing order code, e.g. JBL-2026-000123.
// When the sequence query fails the code falls back to a millisecond
// timestamp; the fallback form is not collision-proof, so the failure is
// logged loudly instead of aborting the order.
func GenerateOrderCode(ctx context.Context, seq codeSequence, prefix string, now time.Time, logg *logger.Logger) string {
	if prefix == "" {
		prefix = "JBL"
	}
	year := now.UTC().Year()

	n, err := seq.NextOrderCodeSeq(ctx)
	if err != nil {
		if logg != nil {
			logCtx := logg.WithField(ctx, "error", err.Error())
			logg.Warn(logCtx, "order code sequence unavailable, using timestamp fallback")
		}
		return fmt.Sprintf("%s-%d-%d", prefix, year, now.UTC().UnixMilli())
	}
	return fmt.Sprintf("%s-%d-%06d", prefix, year, n)
}
