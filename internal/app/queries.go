package app

import (
	"context"
	"strings"
	"time"

	"review_blocks/internal/domain"
)

// PageService renders whole pages: markup for every known block plus the
// structured-data graph.
type PageService struct {
	repo     domain.PageRepository
	cache    domain.Cache
	cacheTTL time.Duration
	render   *RenderService
}

func NewPageService(r domain.PageRepository, c domain.Cache, ttl time.Duration, render *RenderService) *PageService {
	return &PageService{repo: r, cache: c, cacheTTL: ttl, render: render}
}

func (s *PageService) GetPage(ctx context.Context, id int64) (domain.Page, error) {
	key := domain.PageCacheKey(id)
	var p domain.Page
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &p); ok {
			return p, nil
		}
	}
	p, err := s.repo.GetPage(ctx, id)
	if err != nil {
		return domain.Page{}, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, p, int(s.cacheTTL.Seconds()))
	}
	return p, nil
}

func (s *PageService) ListPageIDs(ctx context.Context, limit int) ([]int64, error) {
	return s.repo.ListPageIDs(ctx, limit)
}

// BlockRender is the outcome for one block found on a page.
type BlockRender struct {
	Name    string           `json:"name"`
	Anchor  string           `json:"anchor,omitempty"`
	Outcome string           `json:"outcome"`
	Message string           `json:"message,omitempty"`
	HTML    string           `json:"html,omitempty"`
	JSONLD  []map[string]any `json:"jsonld,omitempty"`
}

type PageRender struct {
	PageID int64         `json:"page_id"`
	HTML   string        `json:"html"`
	Blocks []BlockRender `json:"blocks"`
	Graph  Document      `json:"graph"`
}

// RenderPage renders every FAQ and review block on a page in document
// order. The page graph is built from the same outcomes, so each block's
// rows are fetched once.
func (s *PageService) RenderPage(ctx context.Context, id int64, editor bool) (PageRender, error) {
	p, err := s.GetPage(ctx, id)
	if err != nil {
		return PageRender{}, err
	}
	return s.Render(ctx, p, editor), nil
}

// Render is RenderPage for a page already in hand.
func (s *PageService) Render(ctx context.Context, p domain.Page, editor bool) PageRender {
	rc := domain.RenderContext{Editor: editor, Permalink: p.Permalink, PageID: p.ID}
	blocks := s.render.Blocks()
	out := PageRender{PageID: p.ID, Blocks: []BlockRender{}, Graph: Document{}}

	var sb strings.Builder
	domain.WalkBlocks(p.Blocks, func(b domain.Block) {
		var def, kind string
		switch b.Name {
		case blocks.FAQ.Name:
			def, kind = blocks.FAQ.DefaultAnchor, KindFAQ
		case blocks.Reviews.Name:
			def, kind = blocks.Reviews.DefaultAnchor, KindReviews
		default:
			return
		}
		o := s.render.RenderBlock(ctx, rc, b)
		markup := s.render.Markup(o)
		sb.WriteString(markup)
		out.Blocks = append(out.Blocks, BlockRender{
			Name:    b.Name,
			Anchor:  AnchorFor(b, def),
			Outcome: o.Kind.String(),
			Message: o.Message,
			HTML:    markup,
			JSONLD:  o.JSONLD,
		})
		if p.Singular {
			for _, n := range o.JSONLD {
				out.Graph = s.render.appendGroup(out.Graph, kind, n)
			}
		}
	})
	out.HTML = sb.String()
	return out
}
