package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sagarc03/boxgate"
	"github.com/sagarc03/boxgate/ratelimit"
)

// Service is the subset of boxgate.GatewayService used by the handlers.
type Service interface {
	List(ctx context.Context, box boxgate.Box) ([]boxgate.BoxEntry, error)
	Upload(ctx context.Context, box boxgate.Box, name, contentType string, body io.Reader) (boxgate.ObjectInfo, error)
	DeleteAll(ctx context.Context, box boxgate.Box) (int, error)
	DeleteOne(ctx context.Context, box boxgate.Box, name string) error
	Stat(ctx context.Context, box boxgate.Box, name, rangeHeader string) (boxgate.Object, error)
	Open(ctx context.Context, box boxgate.Box, name, rangeHeader string) (boxgate.Object, error)
	Redirect(ctx context.Context, key string) (string, error)
	RedirectExists(ctx context.Context, key string) (bool, error)
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" validate:"min=0"`
}

// DefaultCORSConfig returns the headers the box page needs for previews and
// ranged media playback.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Range"},
		ExposedHeaders: []string{"Content-Range", "Content-Length", "Content-Disposition", "Accept-Ranges", "ETag"},
		MaxAge:         86400,
	}
}

type HandlerConfig struct {
	Auth Authorizer
	// Limiter may be nil to disable rate limiting.
	Limiter *ratelimit.Limiter
	// TrustProxyHeaders enables CF-Connecting-IP, X-Forwarded-For and
	// X-Real-IP for client identity.
	TrustProxyHeaders bool
	// MaxUploadSize bounds the upload request body. Zero means unlimited.
	MaxUploadSize int64
	// BackendTimeout bounds metadata calls (list, stat, delete, redirect).
	// Upload and stream bodies are bounded by the request context only.
	BackendTimeout time.Duration
	CORS           CORSConfig
	// Metrics may be nil.
	Metrics *Metrics
	// Now is the rate limiter clock; defaults to time.Now.
	Now func() time.Time
}

// Handler serves the box and redirect routes.
type Handler struct {
	config  HandlerConfig
	service Service
}

// NewHandler creates a new Handler with the given configuration and service.
func NewHandler(config *HandlerConfig, service Service) *Handler {
	cfg := *config
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Handler{
		config:  cfg,
		service: service,
	}
}

// Router returns the gateway's http.Handler. Every route requires the token;
// OPTIONS requests are answered before rate limiting.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(ClientMiddleware(h.config.TrustProxyHeaders))
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(h.config.Metrics.Middleware)

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:     h.config.CORS.AllowedOrigins,
			AllowedMethods:     h.config.CORS.AllowedMethods,
			AllowedHeaders:     h.config.CORS.AllowedHeaders,
			ExposedHeaders:     h.config.CORS.ExposedHeaders,
			AllowCredentials:   h.config.CORS.AllowCredentials,
			MaxAge:             h.config.CORS.MaxAge,
			OptionsPassthrough: true,
		}))
	}
	r.Use(Preflight)
	r.Use(RateLimitMiddleware(h.config.Limiter, h.config.Now, h.config.Metrics))
	r.Use(AuthMiddleware(h.config.Auth, h.config.Limiter, h.config.Now, h.config.Metrics))

	r.Route("/media/{box}", func(r chi.Router) {
		r.Delete("/", h.handleDeleteAll)
		r.Get("/list", h.handleList)
		r.Post("/upload", h.handleUpload)
		r.Delete("/file", h.handleDeleteOne)
		r.Get("/*", h.handleStream)
		r.Head("/*", h.handleStream)
	})

	r.Get("/*", h.handleRedirect)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusNotFound, CodeNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed)
	})

	return r
}

func (h *Handler) backendContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.config.BackendTimeout <= 0 {
		return r.Context(), func() {}
	}
	return context.WithTimeout(r.Context(), h.config.BackendTimeout)
}

func boxParam(r *http.Request) (boxgate.Box, error) {
	return boxgate.ParseBox(chi.URLParam(r, "box"))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	box, err := boxParam(r)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	ctx, cancel := h.backendContext(r)
	defer cancel()

	entries, err := h.service.List(ctx, box)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, entries)
}

// handleUpload streams every multipart part named "files" into the box.
// Parts are stored as they arrive; an error stops the upload but keeps the
// parts already saved.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	box, err := boxParam(r)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		WriteError(w, http.StatusBadRequest, CodeNotMultipart)
		return
	}

	if h.config.MaxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadSize)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		WriteError(w, http.StatusBadRequest, CodeNotMultipart)
		return
	}

	saved := 0
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			HandleError(w, r, err)
			return
		}

		if part.FormName() != "files" || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		info, err := h.service.Upload(r.Context(), box, part.FileName(), part.Header.Get("Content-Type"), part)
		_ = part.Close()
		if err != nil {
			HandleError(w, r, err)
			return
		}
		h.config.Metrics.addUploaded(info.Size)
		saved++
	}

	if saved == 0 {
		HandleError(w, r, boxgate.ErrNoFiles)
		return
	}

	_ = WriteJSON(w, http.StatusOK, OKResponse{OK: true, Saved: &saved})
}

func (h *Handler) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	box, err := boxParam(r)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	if r.URL.Query().Get("all") != "1" {
		WriteError(w, http.StatusBadRequest, CodeMissingAllFlag)
		return
	}

	ctx, cancel := h.backendContext(r)
	defer cancel()

	deleted, err := h.service.DeleteAll(ctx, box)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, OKResponse{OK: true, Deleted: &deleted})
}

func (h *Handler) handleDeleteOne(w http.ResponseWriter, r *http.Request) {
	box, err := boxParam(r)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	ctx, cancel := h.backendContext(r)
	defer cancel()

	if err := h.service.DeleteOne(ctx, box, r.URL.Query().Get("name")); err != nil {
		HandleError(w, r, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, OKResponse{OK: true})
}

// streamName returns the decoded file name following "/media/<box>/".
func streamName(r *http.Request) string {
	rest := strings.TrimPrefix(r.URL.Path, "/media/")
	_, name, _ := strings.Cut(rest, "/")
	return name
}

// inlineDisposition reports whether browsers should render the type in place.
func inlineDisposition(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch {
	case strings.HasPrefix(mediaType, "image/"),
		strings.HasPrefix(mediaType, "video/"),
		strings.HasPrefix(mediaType, "audio/"),
		mediaType == "application/pdf":
		return true
	}
	return false
}

func contentDisposition(name, contentType string) string {
	disposition := "attachment"
	if inlineDisposition(contentType) {
		disposition = "inline"
	}
	if v := mime.FormatMediaType(disposition, map[string]string{"filename": name}); v != "" {
		return v
	}
	return disposition
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	box, err := boxParam(r)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	name := streamName(r)
	rangeHeader := r.Header.Get("Range")

	var obj boxgate.Object
	if r.Method == http.MethodHead {
		ctx, cancel := h.backendContext(r)
		obj, err = h.service.Stat(ctx, box, name, rangeHeader)
		cancel()
	} else {
		obj, err = h.service.Open(r.Context(), box, name, rangeHeader)
	}
	if err != nil {
		HandleError(w, r, err)
		return
	}
	if obj.Body != nil {
		defer func() { _ = obj.Body.Close() }()
	}

	header := w.Header()
	header.Set("Content-Type", obj.Info.ContentType)
	header.Set("Accept-Ranges", "bytes")
	header.Set("Cache-Control", "private, no-store")
	header.Set("Content-Disposition", contentDisposition(obj.Name, obj.Info.ContentType))
	if obj.Info.ETag != "" {
		header.Set("ETag", obj.Info.ETag)
	}
	if !obj.Info.LastModified.IsZero() {
		header.Set("Last-Modified", obj.Info.LastModified.UTC().Format(http.TimeFormat))
	}

	status := http.StatusOK
	length := obj.Info.Size
	if obj.Range != nil {
		status = http.StatusPartialContent
		length = obj.Range.Length()
		header.Set("Content-Range", obj.Range.ContentRange(obj.Info.Size))
	}
	header.Set("Content-Length", strconv.FormatInt(length, 10))
	w.WriteHeader(status)

	if obj.Body == nil {
		return
	}

	n, err := io.Copy(w, obj.Body)
	h.config.Metrics.addStreamed(n)
	if err != nil && r.Context().Err() == nil {
		slog.WarnContext(r.Context(), "stream interrupted",
			"key", obj.Info.Key,
			"written", n,
			"err", err,
		)
	}
}

// handleRedirect serves both the redirect and, with check=1, the
// redirect-check route. Keys are the decoded path after the leading slashes.
func (h *Handler) handleRedirect(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimLeft(r.URL.Path, "/")
	if key == "" {
		WriteError(w, http.StatusBadRequest, CodeMissingKey)
		return
	}

	ctx, cancel := h.backendContext(r)
	defer cancel()

	if r.URL.Query().Get("check") == "1" {
		exists, err := h.service.RedirectExists(ctx, key)
		if err != nil {
			HandleError(w, r, err)
			return
		}
		_ = WriteJSON(w, http.StatusOK, OKResponse{OK: true, Exists: &exists})
		return
	}

	target, err := h.service.Redirect(ctx, key)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, target, http.StatusFound)
}
