package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"review_blocks/internal/adapters/filterui"
	"review_blocks/internal/app"
	"review_blocks/internal/domain"
)

// Handlers serve the render pipeline over HTTP. Import is optional; the
// import route is only mounted when it is set.
type Handlers struct {
	Render *app.RenderService
	Pages  *app.PageService
	Import *app.ImportService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/assets/faq-filter.js", serveScript)

	s.mux.Route("/v1", func(r chi.Router) {
		r.Get("/pages", h.listPages)
		r.Get("/pages/{id}/render", h.renderPage)
		r.Post("/render/block", h.renderBlock)
		r.Post("/render/shortcode", h.renderShortcode)
		r.Post("/jsonld", h.jsonld)
		if h.Import != nil {
			r.Post("/import", h.importFixture)
		}
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeJSON answers with an ETag and honours If-None-Match. Editor
// responses are never stored by shared caches.
func writeJSON(w http.ResponseWriter, r *http.Request, v any, editor bool) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "response could not be encoded")
		return
	}
	if editor {
		w.Header().Set("Cache-Control", "private, no-store")
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeProblem(w, http.StatusRequestEntityTooLarge, "Payload Too Large", err.Error())
			return false
		}
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return false
	}
	return true
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func (h *Handlers) listPages(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 1000 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 1000")
			return
		}
		limit = l
	}
	ids, err := h.Pages.ListPageIDs(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("list pages failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "pages could not be listed")
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	writeJSON(w, r, map[string]any{"ids": ids}, false)
}

func (h *Handlers) renderPage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	editor := truthy(r.URL.Query().Get("editor"))
	out, err := h.Pages.RenderPage(r.Context(), id, editor)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "page not found")
			return
		}
		log.Error().Err(err).Int64("page_id", id).Msg("render page failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "page could not be rendered")
		return
	}
	writeJSON(w, r, out, editor)
}

type renderContext struct {
	Editor    bool   `json:"editor"`
	Permalink string `json:"permalink"`
	PageID    int64  `json:"page_id"`
}

func (c renderContext) toDomain() domain.RenderContext {
	return domain.RenderContext{Editor: c.Editor, Permalink: c.Permalink, PageID: c.PageID}
}

type blockRequest struct {
	Context renderContext `json:"context"`
	Block   domain.Block  `json:"block"`
}

func (h *Handlers) renderBlock(w http.ResponseWriter, r *http.Request) {
	var req blockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Block.Name) == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Block", "block.name is required")
		return
	}
	blocks := h.Render.Blocks()
	def := blocks.FAQ.DefaultAnchor
	if req.Block.Name == blocks.Reviews.Name {
		def = blocks.Reviews.DefaultAnchor
	}
	o := h.Render.RenderBlock(r.Context(), req.Context.toDomain(), req.Block)
	writeJSON(w, r, app.BlockRender{
		Name:    req.Block.Name,
		Anchor:  app.AnchorFor(req.Block, def),
		Outcome: o.Kind.String(),
		Message: o.Message,
		HTML:    h.Render.Markup(o),
		JSONLD:  o.JSONLD,
	}, req.Context.Editor)
}

// shortcodeRequest takes either post content holding the shortcode or the
// raw attributes.
type shortcodeRequest struct {
	Context renderContext     `json:"context"`
	Content string            `json:"content"`
	Atts    map[string]string `json:"atts"`
}

type shortcodeResponse struct {
	Outcome string `json:"outcome"`
	Message string `json:"message,omitempty"`
	HTML    string `json:"html"`
}

func (h *Handlers) renderShortcode(w http.ResponseWriter, r *http.Request) {
	var req shortcodeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	atts := app.SanitizeShortcodeAtts(req.Atts)
	if req.Content != "" {
		var ok bool
		atts, ok = app.ParseShortcode(req.Content, h.Render.Blocks().Shortcode)
		if !ok {
			writeJSON(w, r, shortcodeResponse{Outcome: domain.OutcomeEmpty.String()}, req.Context.Editor)
			return
		}
	}
	o := h.Render.RenderTestimonials(r.Context(), req.Context.toDomain(), atts)
	writeJSON(w, r, shortcodeResponse{
		Outcome: o.Kind.String(),
		Message: o.Message,
		HTML:    h.Render.Markup(o),
	}, req.Context.Editor)
}

// jsonldRequest is the structured-data hook: the page and the graph other
// producers have built so far.
type jsonldRequest struct {
	Page   *domain.Page `json:"page"`
	PageID int64        `json:"page_id"`
	Graph  app.Document `json:"graph"`
}

func (h *Handlers) jsonld(w http.ResponseWriter, r *http.Request) {
	var req jsonldRequest
	if !decodeBody(w, r, &req) {
		return
	}
	var page domain.Page
	switch {
	case req.Page != nil:
		page = *req.Page
	case req.PageID > 0:
		p, err := h.Pages.GetPage(r.Context(), req.PageID)
		if errors.Is(err, domain.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "page not found")
			return
		}
		if err != nil {
			log.Error().Err(err).Int64("page_id", req.PageID).Msg("load page failed")
			writeProblem(w, http.StatusInternalServerError, "Internal Error", "page could not be loaded")
			return
		}
		page = p
	default:
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "page or page_id is required")
		return
	}
	graph := req.Graph
	if graph == nil {
		graph = app.Document{}
	}
	writeJSON(w, r, map[string]any{"@graph": h.Render.GraphFor(r.Context(), page, graph)}, false)
}

func (h *Handlers) importFixture(w http.ResponseWriter, r *http.Request) {
	var fx app.Fixture
	if !decodeBody(w, r, &fx) {
		return
	}
	st, err := h.Import.Import(r.Context(), fx)
	if err != nil {
		log.Warn().Err(err).Msg("import failed")
		writeProblem(w, http.StatusUnprocessableEntity, "Import Failed", err.Error())
		return
	}
	writeJSON(w, r, map[string]int{"terms": st.Terms, "fields": st.Fields, "pages": st.Pages}, false)
}

func serveScript(w http.ResponseWriter, r *http.Request) {
	b, err := fs.ReadFile(filterui.Assets, filterui.ScriptPath)
	if err != nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "asset not found")
		return
	}
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(b)
}
