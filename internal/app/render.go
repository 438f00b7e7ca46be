package app

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"review_blocks/internal/domain"
	"review_blocks/internal/shared"
)

// Block attributes read by the render service.
const (
	AttrIncludeCategories = "include_categories"
	AttrExcludeCategories = "exclude_categories"
)

const (
	KindFAQ          = "faq"
	KindReviews      = "reviews"
	KindTestimonials = "testimonials"
)

const (
	NoticeReviewsUnavailable = "Reviews are unavailable because the form-fields plugin is inactive."
	NoticeFaqUnavailable     = "FAQs are unavailable because the form-fields plugin is inactive."
	NoticeReviewsEmpty       = "No reviews to display yet."
	NoticeFaqEmpty           = "No FAQs to display yet."
	NoticeTestimonialsEmpty  = "No testimonials available right now."
)

// MarkupRenderer turns filtered records into HTML.
type MarkupRenderer interface {
	FaqList(anchor string, recs []domain.FaqRecord) (string, error)
	ReviewList(anchor string, recs []domain.ReviewRecord) (string, error)
	Testimonials(recs []domain.ReviewRecord) (string, error)
	Notice(msg string) string
}

// SourceFactory picks the row source for one block instance. Block may be
// zero-valued for shortcode renders.
type SourceFactory interface {
	For(b domain.Block, rc domain.RenderContext, fields shared.FieldBinding) domain.RowSource
}

// Recorder receives pipeline counters.
type Recorder interface {
	Render(kind, outcome string)
	RowsDropped(kind string, n int)
	SchemaGroup(kind, result string)
}

type nopRecorder struct{}

func (nopRecorder) Render(string, string)      {}
func (nopRecorder) RowsDropped(string, int)    {}
func (nopRecorder) SchemaGroup(string, string) {}

type RenderService struct {
	blocks  shared.Blocks
	sources SourceFactory
	terms   domain.TermStore
	markup  MarkupRenderer
	rec     Recorder
	log     zerolog.Logger
}

type Option func(*RenderService)

func WithRecorder(r Recorder) Option {
	return func(s *RenderService) {
		if r != nil {
			s.rec = r
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *RenderService) { s.log = l }
}

func NewRenderService(blocks shared.Blocks, sources SourceFactory, terms domain.TermStore, markup MarkupRenderer, opts ...Option) *RenderService {
	s := &RenderService{
		blocks:  blocks,
		sources: sources,
		terms:   terms,
		markup:  markup,
		rec:     nopRecorder{},
		log:     log.Logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *RenderService) Blocks() shared.Blocks { return s.blocks }

// RenderBlock renders one embedded block. Unknown block names render
// nothing.
func (s *RenderService) RenderBlock(ctx context.Context, rc domain.RenderContext, b domain.Block) domain.RenderOutcome {
	switch b.Name {
	case s.blocks.FAQ.Name:
		return s.renderFaq(ctx, rc, b)
	case s.blocks.Reviews.Name:
		return s.renderReviews(ctx, rc, b)
	}
	return domain.Empty()
}

func (s *RenderService) renderFaq(ctx context.Context, rc domain.RenderContext, b domain.Block) domain.RenderOutcome {
	anchor, recs, ok := s.loadFaqs(ctx, rc, b)
	if !ok {
		return s.finish(KindFAQ, s.editorOnly(rc, NoticeFaqUnavailable))
	}
	if len(recs) == 0 {
		return s.finish(KindFAQ, s.editorOnly(rc, NoticeFaqEmpty))
	}
	html, err := s.markup.FaqList(anchor, recs)
	if err != nil {
		s.log.Warn().Err(err).Str("anchor", anchor).Msg("faq markup failed")
		return s.finish(KindFAQ, domain.Empty())
	}
	var ld []map[string]any
	if n := AssembleFaq(recs, SchemaContext{Permalink: rc.Permalink, Anchor: anchor}); n != nil {
		ld = append(ld, n)
	}
	return s.finish(KindFAQ, domain.Rendered(html, ld))
}

func (s *RenderService) renderReviews(ctx context.Context, rc domain.RenderContext, b domain.Block) domain.RenderOutcome {
	anchor, recs, ok := s.loadReviews(ctx, rc, b)
	if !ok {
		return s.finish(KindReviews, s.editorOnly(rc, NoticeReviewsUnavailable))
	}
	if len(recs) == 0 {
		return s.finish(KindReviews, s.editorOnly(rc, NoticeReviewsEmpty))
	}
	html, err := s.markup.ReviewList(anchor, recs)
	if err != nil {
		s.log.Warn().Err(err).Str("anchor", anchor).Msg("review markup failed")
		return s.finish(KindReviews, domain.Empty())
	}
	var ld []map[string]any
	if n := AssembleReviews(recs, SchemaContext{Permalink: rc.Permalink, Anchor: anchor}); n != nil {
		ld = append(ld, n)
	}
	return s.finish(KindReviews, domain.Rendered(html, ld))
}

// RenderTestimonials renders the testimonials shortcode from the options
// object's review repeater.
func (s *RenderService) RenderTestimonials(ctx context.Context, rc domain.RenderContext, atts ShortcodeAtts) domain.RenderOutcome {
	bind := s.blocks.Reviews
	rows, ok := s.fetch(ctx, rc, domain.Block{Name: s.blocks.Shortcode}, bind.Fields, KindTestimonials)
	if !ok {
		return s.finish(KindTestimonials, s.editorOnly(rc, NoticeReviewsUnavailable))
	}
	recs, st := NormalizeReviews(rows, bind.Fields)
	s.dropped(KindTestimonials, st)
	NewTermResolver(s.terms, bind.Taxonomy).ResolveReviews(ctx, recs)
	recs = atts.Apply(recs)
	if len(recs) == 0 {
		return s.finish(KindTestimonials, s.editorOnly(rc, NoticeTestimonialsEmpty))
	}
	html, err := s.markup.Testimonials(recs)
	if err != nil {
		s.log.Warn().Err(err).Msg("testimonials markup failed")
		return s.finish(KindTestimonials, domain.Empty())
	}
	return s.finish(KindTestimonials, domain.Rendered(html, nil))
}

// GraphFor is the structured-data hook. It walks the page's blocks
// depth-first and appends one node per FAQ or review group to graph.
// Groups whose @id is already present are skipped. Non-singular pages
// pass through unchanged.
func (s *RenderService) GraphFor(ctx context.Context, page domain.Page, graph Document) Document {
	if !page.Singular {
		return graph
	}
	rc := domain.RenderContext{Permalink: page.Permalink, PageID: page.ID}
	domain.WalkBlocks(page.Blocks, func(b domain.Block) {
		var (
			kind string
			node Node
		)
		switch b.Name {
		case s.blocks.FAQ.Name:
			kind = KindFAQ
			anchor, recs, ok := s.loadFaqs(ctx, rc, b)
			if !ok {
				return
			}
			node = AssembleFaq(recs, SchemaContext{Permalink: page.Permalink, Anchor: anchor})
		case s.blocks.Reviews.Name:
			kind = KindReviews
			anchor, recs, ok := s.loadReviews(ctx, rc, b)
			if !ok {
				return
			}
			node = AssembleReviews(recs, SchemaContext{Permalink: page.Permalink, Anchor: anchor})
		default:
			return
		}
		graph = s.appendGroup(graph, kind, node)
	})
	return graph
}

// appendGroup adds one schema group unless a node with its @id is present.
func (s *RenderService) appendGroup(graph Document, kind string, node Node) Document {
	if node == nil {
		return graph
	}
	graph, added := graph.AppendUnique(node)
	if !added {
		s.rec.SchemaGroup(kind, "skipped")
		s.log.Debug().Str("kind", kind).Interface("id", node["@id"]).Msg("schema group already present")
		return graph
	}
	s.rec.SchemaGroup(kind, "appended")
	return graph
}

// Markup is the boundary adapter: it decides what an outcome writes to the
// response body.
func (s *RenderService) Markup(o domain.RenderOutcome) string {
	switch o.Kind {
	case domain.OutcomeRendered:
		return o.HTML
	case domain.OutcomePlaceholder:
		return s.markup.Notice(o.Message)
	}
	return ""
}

func (s *RenderService) loadFaqs(ctx context.Context, rc domain.RenderContext, b domain.Block) (string, []domain.FaqRecord, bool) {
	bind := s.blocks.FAQ
	anchor := AnchorFor(b, bind.DefaultAnchor)
	rows, ok := s.fetch(ctx, rc, b, bind.Fields, KindFAQ)
	if !ok {
		return anchor, nil, false
	}
	recs, st := NormalizeFaqs(rows, bind.Fields)
	s.dropped(KindFAQ, st)
	res := NewTermResolver(s.terms, bind.Taxonomy)
	res.ResolveFaqs(ctx, recs)
	return anchor, Filter(recs, res.FilterFrom(ctx, b.Attrs[AttrIncludeCategories], b.Attrs[AttrExcludeCategories])), true
}

func (s *RenderService) loadReviews(ctx context.Context, rc domain.RenderContext, b domain.Block) (string, []domain.ReviewRecord, bool) {
	bind := s.blocks.Reviews
	anchor := AnchorFor(b, bind.DefaultAnchor)
	rows, ok := s.fetch(ctx, rc, b, bind.Fields, KindReviews)
	if !ok {
		return anchor, nil, false
	}
	recs, st := NormalizeReviews(rows, bind.Fields)
	s.dropped(KindReviews, st)
	res := NewTermResolver(s.terms, bind.Taxonomy)
	res.ResolveReviews(ctx, recs)
	return anchor, Filter(recs, res.FilterFrom(ctx, b.Attrs[AttrIncludeCategories], b.Attrs[AttrExcludeCategories])), true
}

// fetch reports ok=false only when no source could be reached at all.
func (s *RenderService) fetch(ctx context.Context, rc domain.RenderContext, b domain.Block, fields shared.FieldBinding, kind string) ([]domain.RawRow, bool) {
	if s.sources == nil {
		return nil, false
	}
	src := s.sources.For(b, rc, fields)
	if src == nil {
		return nil, false
	}
	rows, err := src.FetchRows(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrSourceUnavailable) {
			s.log.Warn().Err(err).Str("kind", kind).Msg("row source failed")
		} else {
			s.log.Debug().Str("kind", kind).Msg("no row source available")
		}
		return nil, false
	}
	return rows, true
}

func (s *RenderService) dropped(kind string, st NormalizeStats) {
	if st.Dropped == 0 {
		return
	}
	s.rec.RowsDropped(kind, st.Dropped)
	s.log.Debug().Str("kind", kind).Int("seen", st.Seen).Int("dropped", st.Dropped).Msg("rows dropped")
}

func (s *RenderService) editorOnly(rc domain.RenderContext, msg string) domain.RenderOutcome {
	if rc.Editor {
		return domain.Placeholder(msg)
	}
	return domain.Empty()
}

func (s *RenderService) finish(kind string, o domain.RenderOutcome) domain.RenderOutcome {
	s.rec.Render(kind, o.Kind.String())
	return o
}

// AnchorFor derives the section anchor: the block's anchor, then its id,
// then the per-kind default, each reduced to a slug.
func AnchorFor(b domain.Block, def string) string {
	if a := Slugify(b.Anchor); a != "" {
		return a
	}
	if a := Slugify(b.ID); a != "" {
		return a
	}
	return def
}
