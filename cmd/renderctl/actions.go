package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/semaphore"

	"review_blocks/internal/adapters/filterui"
	"review_blocks/internal/adapters/htmlrender"
	"review_blocks/internal/adapters/observability"
	"review_blocks/internal/adapters/rowsource"
	"review_blocks/internal/app"
	"review_blocks/internal/shared"
)

// env is what every command works against.
type env struct {
	store  contentStore
	markup *htmlrender.Renderer
	render *app.RenderService
	pages  *app.PageService
}

func setup(c *cli.Context) (*env, error) {
	log.Logger = observability.NewCLILogger(c.String("env"))

	blocks := shared.DefaultBlocks()
	if path := c.String("blocks"); path != "" {
		b, err := shared.LoadBlocks(path)
		if err != nil {
			return nil, err
		}
		blocks = b
	}

	store, err := openStore(c.Context, c.String("store"))
	if err != nil {
		return nil, err
	}
	markup := htmlrender.MustNew()
	render := app.NewRenderService(blocks,
		rowsource.NewFactory(store, nil, blocks.OptionsObject),
		store, markup,
		app.WithRecorder(observability.Recorder{}),
	)
	return &env{
		store:  store,
		markup: markup,
		render: render,
		pages:  app.NewPageService(store, nil, 0, render),
	}, nil
}

func SeedAction(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.store.Close()

	fx, err := loadFixture(c.String("fixture"))
	if err != nil {
		return err
	}
	st, err := app.NewImportService(e.store, nil).Import(c.Context, fx)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	log.Info().Int("terms", st.Terms).Int("fields", st.Fields).Int("pages", st.Pages).Msg("seed completed")
	fmt.Fprintf(c.App.Writer, "imported %d terms, %d fields, %d pages\n", st.Terms, st.Fields, st.Pages)
	return nil
}

// pageIDs returns the --page values, or every stored page with --all.
func pageIDs(c *cli.Context, e *env) ([]int64, error) {
	ids := c.Int64Slice("page")
	if c.Bool("all") {
		all, err := e.pages.ListPageIDs(c.Context, c.Int("limit"))
		if err != nil {
			return nil, fmt.Errorf("list pages: %w", err)
		}
		ids = append(ids, all...)
	}
	if len(ids) == 0 {
		return nil, cli.Exit("no pages selected: pass --page or --all", 2)
	}
	return ids, nil
}

func RenderAction(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.store.Close()

	ids, err := pageIDs(c, e)
	if err != nil {
		return err
	}
	outDir := c.String("out")
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	var (
		mu     sync.Mutex
		failed int
	)
	docs := make([]string, len(ids))

	err = fanOut(c.Context, len(ids), c.Int("workers"), func(i int) {
		id := ids[i]
		doc, err := renderDocument(c.Context, e, id, c.Bool("editor"), c.String("script"))
		if err == nil && outDir != "" {
			err = os.WriteFile(filepath.Join(outDir, fmt.Sprintf("page-%d.html", id)), []byte(doc), 0o644)
		}
		if err != nil {
			log.Warn().Int64("page_id", id).Err(err).Msg("render failed")
			mu.Lock()
			failed++
			mu.Unlock()
			return
		}
		docs[i] = doc
		log.Info().Int64("page_id", id).Msg("render ok")
	})
	if err != nil {
		return err
	}

	if outDir == "" {
		for _, d := range docs {
			if d != "" {
				fmt.Fprintln(c.App.Writer, d)
			}
		}
	}
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d pages failed", failed, len(ids)), 1)
	}
	return nil
}

// fanOut runs fn for 0..n-1 on at most workers goroutines. It always waits
// for started calls before returning, also when ctx ends early.
func fanOut(ctx context.Context, n, workers int, fn func(i int)) error {
	if workers < 1 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup
	defer wg.Wait()

	for i := 0; i < n; i++ {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("semaphore acquire: %w", err)
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)
			fn(i)
		}(i)
	}
	return nil
}

func renderDocument(ctx context.Context, e *env, id int64, editor bool, script string) (string, error) {
	p, err := e.pages.GetPage(ctx, id)
	if err != nil {
		return "", err
	}
	out := e.pages.Render(ctx, p, editor)
	return e.markup.Page(p.Permalink, out.HTML, []map[string]any(out.Graph), script)
}

func SchemaAction(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.store.Close()

	ids, err := pageIDs(c, e)
	if err != nil {
		return err
	}
	graph := app.Document{}
	for _, id := range ids {
		p, err := e.pages.GetPage(c.Context, id)
		if err != nil {
			return fmt.Errorf("page %d: %w", id, err)
		}
		graph = e.render.GraphFor(c.Context, p, graph)
	}
	return writeIndented(c.App.Writer, map[string]any{"@context": "https://schema.org", "@graph": graph})
}

// PreviewAction renders one page and runs the filter controller over the
// markup, the way a browser would after a visitor picks a category and
// types a search term.
func PreviewAction(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.store.Close()

	out, err := e.pages.RenderPage(c.Context, c.Int64("page"), c.Bool("editor"))
	if err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out.HTML))
	if err != nil {
		return fmt.Errorf("parse rendered page: %w", err)
	}

	ctrls := filterui.BindAll(doc)
	if len(ctrls) == 0 {
		fmt.Fprintln(c.App.Writer, "no FAQ lists on this page")
		return nil
	}
	for i, ctrl := range ctrls {
		visible := ctrl.Apply(c.String("category"), c.String("search"))
		fmt.Fprintf(c.App.Writer, "faq list %d: %d of %d visible\n", i+1, visible, ctrl.Len())
		for j := 0; j < ctrl.Len(); j++ {
			if !ctrl.Hidden(j) {
				q := doc.Find(".faq-list").Eq(i).Find(".faq-list__item").Eq(j).Find(".faq-list__question").Text()
				fmt.Fprintf(c.App.Writer, "  - %s\n", strings.TrimSpace(q))
			}
		}
	}
	if c.Bool("html") {
		html, err := doc.Html()
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, html)
	}
	return nil
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
