package shortener

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sundayezeilo/edgelink/internal/errx"
	"github.com/sundayezeilo/edgelink/internal/query"
)

// Repository defines the persistence operations for Link entities.
// Every call is a fresh round trip to the engine; nothing is cached.
type Repository interface {
	// CreateLink stores a new link and returns its engine-assigned id ("link:<id>").
	CreateLink(ctx context.Context, key, url string) (string, error)
	// FindLinkByKey returns the url stored under key.
	FindLinkByKey(ctx context.Context, key string) (string, error)
	// ListLinks returns every stored record. Failures yield an empty list.
	ListLinks(ctx context.Context) []query.Object
}

const (
	createLinkStmt = `INSERT INTO link (key, url)
SELECT d.key, d.url FROM jsonb_to_record(@data::jsonb) AS d(key text, url text)
RETURNING id, key, url, created_at`

	findLinkByKeyStmt = `SELECT id, key, url, created_at FROM link
WHERE key = @key
ORDER BY created_at, id
LIMIT 1`

	listLinksStmt = `SELECT id, key, url, created_at FROM link ORDER BY created_at, id`
)

type repo struct {
	exec   query.Executor
	logger *slog.Logger
}

// RepositoryConfig holds configuration for the repository
type RepositoryConfig struct {
	Logger *slog.Logger
}

// NewRepository creates a Repository issuing statements through exec.
func NewRepository(exec query.Executor, config *RepositoryConfig) Repository {
	if config == nil {
		config = &RepositoryConfig{}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &repo{
		exec:   exec,
		logger: logger,
	}
}

func (r *repo) CreateLink(ctx context.Context, key, url string) (string, error) {
	const op = "shortener.repo.CreateLink"

	if err := validateKey(key); err != nil {
		return "", errx.E(op, errx.Invalid, &CreateError{Key: key, Err: err})
	}
	if url == "" {
		return "", errx.E(op, errx.Invalid, &CreateError{Key: key, Err: errors.New("url cannot be empty")})
	}

	data := query.Object{
		"key": query.String(key),
		"url": query.String(url),
	}
	ress, err := r.exec.Execute(ctx, createLinkStmt, query.Vars{"data": data})
	if err != nil {
		return "", errx.E(op, errx.Unavailable, &CreateError{Key: key, Err: err})
	}

	obj, err := query.FirstObject(ress)
	if err != nil {
		return "", errx.E(op, createKind(err), &CreateError{Key: key, Err: err})
	}

	id, ok := obj.Thing("id")
	if !ok {
		return "", errx.E(op, errx.Malformed, &CreateError{Key: key, Err: ErrMissingID})
	}

	r.logger.DebugContext(ctx, "link created",
		"key", key,
		"id", id.String(),
		"engine_time", query.Elapsed(ress),
	)
	return id.String(), nil
}

func (r *repo) FindLinkByKey(ctx context.Context, key string) (string, error) {
	const op = "shortener.repo.FindLinkByKey"

	if key == "" {
		return "", lookupFailure(op, key, ReasonInvalid, errors.New("key cannot be empty"))
	}

	ress, err := r.exec.Execute(ctx, findLinkByKeyStmt, query.Vars{"key": query.String(key)})
	if err != nil {
		return "", lookupFailure(op, key, ReasonUnavailable, err)
	}

	obj, err := query.FirstObject(ress)
	if err != nil {
		return "", lookupFailure(op, key, lookupReason(err), err)
	}

	link, err := decodeLink(obj)
	if err != nil {
		return "", lookupFailure(op, key, ReasonMalformed, err)
	}

	r.logger.DebugContext(ctx, "link found",
		"key", key,
		"id", link.ID.String(),
		"url", link.URL,
		"engine_time", query.Elapsed(ress),
	)
	return link.URL, nil
}

func lookupFailure(op, key string, reason LookupReason, err error) error {
	return errx.E(op, reason.kind(), &LookupError{Key: key, Reason: reason, Err: err})
}

func (r *repo) ListLinks(ctx context.Context) []query.Object {
	ress, err := r.exec.Execute(ctx, listLinksStmt, nil)
	if err != nil {
		r.logger.WarnContext(ctx, "list links failed", "error", err.Error())
		return []query.Object{}
	}

	seq, err := query.Objects(ress)
	if err != nil {
		r.logger.WarnContext(ctx, "list links returned an unexpected result", "error", err.Error())
		return []query.Object{}
	}

	links, err := query.CollectObjects(seq)
	if err != nil {
		r.logger.WarnContext(ctx, "list links returned a malformed record", "error", err.Error())
		return []query.Object{}
	}
	if links == nil {
		links = []query.Object{}
	}
	r.logger.DebugContext(ctx, "links listed", "count", len(links), "engine_time", query.Elapsed(ress))
	return links
}
