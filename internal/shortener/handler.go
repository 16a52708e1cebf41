package shortener

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sundayezeilo/edgelink/internal/errx"
	"github.com/sundayezeilo/edgelink/internal/httpx"
)

const (
	helloMessage      = "Hello, World!"
	notCreatedMessage = "Link not created!"

	// maxNewLinkBody bounds a new-link request: a key, a url and JSON framing.
	maxNewLinkBody = 16 << 10
)

// NewLinkRequest represents the JSON request body for creating a link.
type NewLinkRequest struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// MessageResponse is the JSON body shared by the index and new-link endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}

// Handler provides HTTP handlers for the link service.
type Handler struct {
	repo     Repository
	resolver *Resolver
	logger   *slog.Logger
	strict   bool
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	Repository Repository
	Resolver   *Resolver
	Logger     *slog.Logger
	// StrictCreateStatus makes a failed create answer with a non-2xx status derived
	// from the error kind instead of 200.
	StrictCreateStatus bool
}

// NewHandler creates a new Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	resolver := cfg.Resolver
	if resolver == nil {
		resolver = NewResolver(cfg.Repository, logger)
	}

	return &Handler{
		repo:     cfg.Repository,
		resolver: resolver,
		logger:   logger,
		strict:   cfg.StrictCreateStatus,
	}
}

func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With(
		"request_id", httpx.GetRequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	)
}

// Index handles GET /.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: helloMessage})
}

// Redirect handles GET /{key}: 303 to the stored url, or 404 with an empty body.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := r.PathValue("key")

	switch o := h.resolver.Resolve(ctx, key).(type) {
	case Redirect:
		w.Header().Set("Location", o.URL)
		w.WriteHeader(http.StatusSeeOther)

	case NoSuchKey:
		h.logResolveError(ctx, h.requestLogger(r), o)
		w.WriteHeader(http.StatusNotFound)
	}
}

// NewLink handles POST /new-link.
func (h *Handler) NewLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	req, err := httpx.DecodeJSON[NewLinkRequest](r, httpx.AllowUnknownFields(), httpx.WithMaxBytes(maxNewLinkBody))
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		h.writeNotCreated(w, errx.Invalid)
		return
	}

	id, err := h.repo.CreateLink(ctx, req.Key, req.URL)
	if err != nil {
		h.logCreateError(ctx, logger, err, req)
		h.writeNotCreated(w, errx.KindOf(err))
		return
	}

	logger.InfoContext(ctx, "link created successfully",
		"link_id", id,
		"key", req.Key,
	)
	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: id})
}

// ListLinks handles GET /links. It always answers 200; failures produce [].
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	links := h.repo.ListLinks(r.Context())
	httpx.WriteJSON(w, http.StatusOK, links)
}

func (h *Handler) writeNotCreated(w http.ResponseWriter, kind errx.Kind) {
	status := http.StatusOK
	if h.strict {
		status = httpx.ErrorKindToStatus(kind)
	}
	httpx.WriteJSON(w, status, MessageResponse{Message: notCreatedMessage})
}

func (h *Handler) logCreateError(ctx context.Context, logger *slog.Logger, err error, req NewLinkRequest) {
	kind := errx.KindOf(err)
	attrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
		"key", req.Key,
	}

	switch kind {
	case errx.Invalid, errx.Conflict:
		logger.WarnContext(ctx, "link rejected", attrs...)
	default:
		logger.ErrorContext(ctx, "link not created", attrs...)
	}
}

func (h *Handler) logResolveError(ctx context.Context, logger *slog.Logger, o NoSuchKey) {
	kind := errx.KindOf(o.Err)
	attrs := []any{
		"key", o.Key,
		"error_kind", kind,
		"operation", errx.OpOf(o.Err),
	}

	switch kind {
	case errx.NotFound, errx.Invalid:
		logger.DebugContext(ctx, "key not found", attrs...)
	default:
		logger.ErrorContext(ctx, "key lookup failed", append(attrs, "error", o.Err.Error())...)
	}
}
