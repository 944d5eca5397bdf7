// Package preview serves combinations over HTTP without writing them to disk.
//
// Routes:
//
//	GET /combinations              plan summary and a page of metadata
//	GET /combinations/{n}.json     metadata of artifact n
//	GET /combinations/{n}.png      rendered image of artifact n
//
// Artifact numbers are 1-based, matching the file names a generate run
// writes. Every request renders on its own pooled surface, so concurrent
// requests never share one. A request may pick the background by name with
// ?background=; otherwise a background is drawn from a source seeded with the
// artifact number, so the same number always previews the same background.
package preview

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/traitforge/pkg/artifact"
	"github.com/matzehuels/traitforge/pkg/background"
	"github.com/matzehuels/traitforge/pkg/cache"
	"github.com/matzehuels/traitforge/pkg/compose"
	"github.com/matzehuels/traitforge/pkg/errors"
	"github.com/matzehuels/traitforge/pkg/observability"
	"github.com/matzehuels/traitforge/pkg/pipeline"
)

// Page size limits for GET /combinations.
const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// Options configures a Server.
type Options struct {
	Width    int
	Height   int
	Seed     uint64
	Metadata artifact.MetadataOptions
	Cache    cache.Cache // rendered PNGs; nil disables caching
	Keyer    cache.Keyer
	Logger   *log.Logger
}

// Server renders combinations of a prepared plan on demand.
type Server struct {
	plan   *pipeline.Plan
	loader compose.Loader
	pool   *compose.Pool
	opts   Options
	router chi.Router
}

// New creates a server for plan. Images are loaded through loader.
func New(plan *pipeline.Plan, loader compose.Loader, opts Options) (*Server, error) {
	if plan == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "plan is required")
	}
	if loader == nil {
		loader = compose.FileLoader{}
	}
	if opts.Width == 0 {
		opts.Width = pipeline.DefaultWidth
	}
	if opts.Height == 0 {
		opts.Height = pipeline.DefaultHeight
	}
	pool, err := compose.NewPool(opts.Width, opts.Height)
	if err != nil {
		return nil, err
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewNullCache()
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	s := &Server{plan: plan, loader: loader, pool: pool, opts: opts}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.observe)
	r.Get("/combinations", s.handleList)
	r.Get("/combinations/{file}", s.handleCombination)
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return errors.Wrap(errors.ErrCodeIO, err, "listen on %s", addr)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// observe reports every request to the HTTP hooks and the debug log.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		d := time.Since(start)
		hooks.OnResponse(r.Context(), r.Method, r.URL.Path, ww.Status(), d)
		s.opts.Logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "duration", d)
	})
}

// =============================================================================
// Handlers
// =============================================================================

type listResponse struct {
	Total  uint64      `json:"total"`
	Count  uint64      `json:"count"`
	Layers []layerInfo `json:"layers"`
	Offset uint64      `json:"offset"`
	Items  []listItem  `json:"items"`
}

type layerInfo struct {
	Name     string   `json:"name"`
	Variants []string `json:"variants"`
}

type listItem struct {
	Number uint64 `json:"number"`
	artifact.Metadata
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	offset, err := queryUint(r, "offset", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := queryUint(r, "limit", DefaultLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	limit = min(limit, MaxLimit)

	resp := listResponse{
		Total:  s.plan.Total(),
		Count:  s.plan.Count,
		Offset: offset,
		Items:  []listItem{},
	}
	for _, l := range s.plan.Layers {
		info := layerInfo{Name: l.Name}
		for _, v := range l.Variants {
			info.Variants = append(info.Variants, v.Name)
		}
		resp.Layers = append(resp.Layers, info)
	}
	for i := offset; i < s.plan.Count && i-offset < limit; i++ {
		c := s.plan.Enumerator.At(i)
		resp.Items = append(resp.Items, listItem{
			Number:   artifact.Number(i),
			Metadata: artifact.MetadataFor(i, c, s.opts.Metadata),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCombination(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	if num, ok := strings.CutSuffix(file, ".json"); ok {
		index, err := s.index(num)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, artifact.MetadataFor(index, s.plan.Enumerator.At(index), s.opts.Metadata))
		return
	}
	if num, ok := strings.CutSuffix(file, ".png"); ok {
		index, err := s.index(num)
		if err != nil {
			writeError(w, err)
			return
		}
		bg, err := s.background(r, index)
		if err != nil {
			writeError(w, err)
			return
		}
		data, err := s.render(r.Context(), index, bg)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		_, _ = w.Write(data)
		return
	}
	writeError(w, errors.New(errors.ErrCodeNotFound, "unknown resource %q", file))
}

// index parses a 1-based artifact number into an index within the plan.
func (s *Server) index(num string) (uint64, error) {
	n, err := strconv.ParseUint(num, 10, 64)
	if err != nil || n == 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "invalid artifact number %q", num)
	}
	if n > s.plan.Count {
		return 0, errors.New(errors.ErrCodeNotFound, "artifact %d out of range (1..%d)", n, s.plan.Count)
	}
	return n - 1, nil
}

// background returns the requested background, or one drawn deterministically
// for index.
func (s *Server) background(r *http.Request, index uint64) (background.Background, error) {
	bgs := s.plan.Backgrounds
	if name := r.URL.Query().Get("background"); name != "" {
		for _, bg := range bgs {
			if bg.Name == name {
				return bg, nil
			}
		}
		return background.Background{}, errors.New(errors.ErrCodeNotFound, "unknown background %q", name)
	}
	sel := background.NewSelectorFrom(rand.New(rand.NewPCG(s.opts.Seed, artifact.Number(index))))
	return sel.Pick(bgs)
}

// render paints index over bg on a pooled surface and returns the PNG bytes.
func (s *Server) render(ctx context.Context, index uint64, bg background.Background) ([]byte, error) {
	c := s.plan.Enumerator.At(index)
	stamps := make([]cache.SourceStamp, len(c.Variants))
	for i, v := range c.Variants {
		stamps[i] = cache.StampFile(v.Path)
	}
	key := s.opts.Keyer.PreviewKey(stamps, cache.PreviewKeyOpts{
		Background: cache.StampFile(bg.Path),
		Width:      s.opts.Width,
		Height:     s.opts.Height,
	})
	if data, hit, err := s.opts.Cache.Get(ctx, key); err == nil && hit {
		observability.Cache().OnCacheHit(ctx, "preview")
		return data, nil
	}
	observability.Cache().OnCacheMiss(ctx, "preview")

	surface := s.pool.Get()
	defer s.pool.Put(surface)

	img, err := surface.Paint(ctx, s.loader, bg, c)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := artifact.EncodePNG(&buf, img, png.DefaultCompression); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode preview %d", artifact.Number(index))
	}

	if s.opts.Cache.Set(ctx, key, buf.Bytes(), cache.TTLPreview) == nil {
		observability.Cache().OnCacheSet(ctx, "preview", buf.Len())
	}
	return buf.Bytes(), nil
}

// =============================================================================
// Helpers
// =============================================================================

func queryUint(r *http.Request, name string, def uint64) (uint64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidInput, "invalid %s %q", name, v)
	}
	return n, nil
}

type errorResponse struct {
	Error   errors.Code `json:"error"`
	Message string      `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	}
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, status, errorResponse{Error: code, Message: errors.UserMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
