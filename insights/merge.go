package insights

import (
	"context"

	"github.com/poiesic/docembed/core"
)

// MergeFunc combines related insights after confidence filtering and before
// ranking. It may drop or rewrite insights but must not raise confidences
// above 1.
type MergeFunc func(ctx context.Context, insights []core.ExtractedInsight) ([]core.ExtractedInsight, error)

// PassthroughMerge returns insights unchanged. It is the default merge step;
// no similarity clustering is performed.
func PassthroughMerge(_ context.Context, insights []core.ExtractedInsight) ([]core.ExtractedInsight, error) {
	return insights, nil
}
