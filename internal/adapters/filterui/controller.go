// Package filterui models the browser filter controller over a parsed
// document and serves the script that runs it client-side.
package filterui

import (
	"embed"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"review_blocks/internal/adapters/htmlrender"
	"review_blocks/internal/app"
)

//go:embed assets/faq-filter.js
var Assets embed.FS

const ScriptPath = "assets/faq-filter.js"

// DebounceDelay is how long search input waits for typing to settle.
const DebounceDelay = 120 * time.Millisecond

const (
	selContainer = ".faq-list"
	selItems     = ".faq-list__items .faq-list__item"
	selQuestion  = ".faq-list__question"
	selAnswer    = ".faq-list__answer"
	selFilter    = ".faq-list__filter"
	selSearch    = ".faq-list__search"
	selCount     = ".faq-list__count"
	hiddenStyle  = "display:none"
)

type State int

const (
	Idle State = iota
	Filtering
)

func (s State) String() string {
	if s == Filtering {
		return "filtering"
	}
	return "idle"
}

type item struct {
	sel      *goquery.Selection
	cats     []string
	haystack string
	style    string
	hasStyle bool
}

// Controller filters the items of one rendered FAQ block. Items are hidden
// with an inline style and never detached, so any filter can be undone.
type Controller struct {
	mu       sync.Mutex
	root     *goquery.Selection
	items    []item
	count    *goquery.Selection
	search   *goquery.Selection
	state    State
	category string
	term     string
	visible  int

	debounce *Debouncer
	onApply  func(visible int)
}

type Option func(*Controller)

func WithDebounce(d time.Duration) Option {
	return func(c *Controller) { c.debounce = NewDebouncer(d) }
}

// OnApply registers a hook called after every filter pass.
func OnApply(fn func(visible int)) Option {
	return func(c *Controller) { c.onApply = fn }
}

// BindAll binds a controller to every FAQ block in doc.
func BindAll(doc *goquery.Document, opts ...Option) []*Controller {
	var out []*Controller
	doc.Find(selContainer).Each(func(_ int, s *goquery.Selection) {
		out = append(out, Bind(s, opts...))
	})
	return out
}

// Bind caches each item's haystack once, fills the category select when
// the server rendered only "All", and applies the empty filter.
func Bind(root *goquery.Selection, opts ...Option) *Controller {
	c := &Controller{
		root:     root,
		count:    root.Find(selCount).First(),
		search:   root.Find(selSearch).First(),
		debounce: NewDebouncer(DebounceDelay),
	}
	for _, o := range opts {
		o(c)
	}
	root.Find(selItems).Each(func(_ int, s *goquery.Selection) {
		raw, _ := s.Attr("data-cats")
		style, hasStyle := s.Attr("style")
		text := s.Find(selQuestion).Text() + " " + s.Find(selAnswer).Text() + " " + raw
		c.items = append(c.items, item{
			sel:      s,
			cats:     splitCats(raw),
			haystack: normalize(text),
			style:    style,
			hasStyle: hasStyle,
		})
	})
	c.populateOptions()
	c.Apply("", "")
	return c
}

// Apply shows the items matching category and term and returns how many
// are visible. An empty category or term matches everything.
func (c *Controller) Apply(category, term string) int {
	c.mu.Lock()
	n := c.apply(category, term)
	hook := c.onApply
	c.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return n
}

func (c *Controller) apply(category, term string) int {
	c.category = strings.TrimSpace(category)
	c.term = normalize(term)
	c.state = Idle
	if c.category != "" || c.term != "" {
		c.state = Filtering
	}

	visible := 0
	for _, it := range c.items {
		show := (c.category == "" || contains(it.cats, c.category)) &&
			(c.term == "" || strings.Contains(it.haystack, c.term))
		switch {
		case !show:
			it.sel.SetAttr("style", hiddenStyle)
		case it.hasStyle:
			it.sel.SetAttr("style", it.style)
		default:
			it.sel.RemoveAttr("style")
		}
		if show {
			visible++
		}
	}
	c.visible = visible
	if c.count.Length() > 0 {
		c.count.SetText(htmlrender.CountText(visible))
	}
	c.root.SetAttr("data-state", c.state.String())
	return visible
}

// SelectCategory is the select's change event. It applies immediately
// with whatever the search box currently holds, which makes a pending
// debounced pass redundant.
func (c *Controller) SelectCategory(category string) int {
	c.debounce.Stop()
	c.mu.Lock()
	term := c.term
	if c.search.Length() > 0 {
		term, _ = c.search.Attr("value")
	}
	c.mu.Unlock()
	return c.Apply(category, term)
}

// Type is the search input event. The pass runs once typing pauses for
// the debounce delay; each call restarts the timer.
func (c *Controller) Type(term string) {
	c.mu.Lock()
	if c.search.Length() > 0 {
		c.search.SetAttr("value", term)
	}
	c.mu.Unlock()
	c.debounce.Trigger(func() {
		c.mu.Lock()
		cat := c.category
		c.mu.Unlock()
		c.Apply(cat, term)
	})
}

// Flush runs a pending debounced pass now.
func (c *Controller) Flush() { c.debounce.Flush() }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Visible() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

func (c *Controller) Len() int { return len(c.items) }

// Hidden reports whether item i is currently hidden.
func (c *Controller) Hidden(i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	style, _ := c.items[i].sel.Attr("style")
	return style == hiddenStyle
}

func (c *Controller) populateOptions() {
	sel := c.root.Find(selFilter).First()
	if sel.Length() == 0 || sel.Find("option").Length() > 1 {
		return
	}
	seen := map[string]bool{}
	var cats []string
	for _, it := range c.items {
		for _, s := range it.cats {
			if !seen[s] {
				seen[s] = true
				cats = append(cats, s)
			}
		}
	}
	sort.Strings(cats)
	for _, s := range cats {
		opt := &html.Node{Type: html.ElementNode, Data: "option", Attr: []html.Attribute{{Key: "value", Val: s}}}
		opt.AppendChild(&html.Node{Type: html.TextNode, Data: optionLabel(s)})
		sel.AppendNodes(opt)
	}
}

func optionLabel(slug string) string {
	words := strings.Fields(strings.ReplaceAll(slug, "-", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// normalize folds case and diacritics and collapses whitespace, for both
// haystacks and search terms.
func normalize(s string) string {
	return strings.Join(strings.Fields(app.FoldDiacritics(s)), " ")
}

func splitCats(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, "|") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
