package shortener

import (
	"context"
	"log/slog"

	"github.com/sundayezeilo/edgelink/internal/errx"
)

// Outcome is the result of resolving a key: either Redirect or NoSuchKey.
type Outcome interface {
	outcome()
}

// Redirect sends the client to URL.
type Redirect struct {
	URL string
}

// NoSuchKey reports that Key cannot be resolved. Err holds the repository failure.
type NoSuchKey struct {
	Key string
	Err error
}

func (Redirect) outcome()  {}
func (NoSuchKey) outcome() {}

// Resolver turns keys into redirect outcomes. It never retries: a failed lookup is
// final for the request.
type Resolver struct {
	repo   Repository
	logger *slog.Logger
}

// NewResolver creates a Resolver backed by repo.
func NewResolver(repo Repository, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{repo: repo, logger: logger}
}

// Resolve looks key up and reports where to send the client.
func (r *Resolver) Resolve(ctx context.Context, key string) Outcome {
	url, err := r.repo.FindLinkByKey(ctx, key)
	if err != nil {
		r.logger.DebugContext(ctx, "key not resolved",
			"key", key,
			"error_kind", errx.KindOf(err),
			"error", err.Error(),
		)
		return NoSuchKey{Key: key, Err: errx.Wrap("shortener.Resolver.Resolve", err)}
	}

	r.logger.DebugContext(ctx, "redirecting", "key", key, "url", url)
	return Redirect{URL: url}
}
