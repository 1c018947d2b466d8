package classifier

import (
	"context"
	"errors"
)

// ErrModelUnavailable is returned when the model artifact cannot be loaded.
// It is fatal at startup: the service must not accept inference traffic
// without a loaded model.
var ErrModelUnavailable = errors.New("model unavailable")

// Result is the outcome of classifying one image: the winning label and the
// full categorical distribution over all labels the model knows.
type Result struct {
	Label         string    `json:"label"`
	Probabilities []float64 `json:"probabilities"`
}

// Client exposes the subset of classifier functionality used by the
// ingestion pipeline. Implementations must be safe for concurrent use and
// deterministic for fixed input bytes.
type Client interface {
	Classify(ctx context.Context, imagePath string) (*Result, error)
	Labels() []string
}
