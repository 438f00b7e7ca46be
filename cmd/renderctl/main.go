package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func newApp() *cli.App {
	pageFlags := []cli.Flag{
		&cli.Int64SliceFlag{Name: "page", Aliases: []string{"p"}, Usage: "page id to render (repeatable)"},
		&cli.BoolFlag{Name: "all", Usage: "render every stored page"},
		&cli.IntFlag{Name: "limit", Value: 100, Usage: "page cap for --all"},
	}

	return &cli.App{
		Name:  "renderctl",
		Usage: "render FAQ and review blocks offline",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "store", Value: "blocks.db", EnvVars: []string{"BLOCKS_STORE"}, Usage: "SQLite file or mysql://<dsn>"},
			&cli.StringFlag{Name: "blocks", EnvVars: []string{"BLOCKS_FILE"}, Usage: "YAML block bindings"},
			&cli.StringFlag{Name: "env", Value: "dev", EnvVars: []string{"APP_ENV"}, Usage: "log format: dev or prod"},
		},
		Commands: []*cli.Command{
			{
				Name:  "seed",
				Usage: "import terms, repeater rows and pages from a fixture",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "fixture", Aliases: []string{"f"}, Required: true, Usage: "YAML or JSON fixture file"},
				},
				Action: SeedAction,
			},
			{
				Name:  "render",
				Usage: "render pages to standalone HTML documents",
				Flags: append(pageFlags,
					&cli.BoolFlag{Name: "editor", Usage: "render in editor context (placeholders and notices)"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output directory; stdout when empty"},
					&cli.StringFlag{Name: "script", Value: "/assets/faq-filter.js", Usage: "filter script URL; empty to omit"},
					&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Value: 4, EnvVars: []string{"RENDER_WORKERS"}},
				),
				Action: RenderAction,
			},
			{
				Name:   "schema",
				Usage:  "print the JSON-LD graph for pages",
				Flags:  pageFlags,
				Action: SchemaAction,
			},
			{
				Name:  "preview",
				Usage: "apply the FAQ filter to a rendered page",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "page", Aliases: []string{"p"}, Required: true},
					&cli.StringFlag{Name: "category", Aliases: []string{"c"}},
					&cli.StringFlag{Name: "search", Aliases: []string{"s"}},
					&cli.BoolFlag{Name: "editor"},
					&cli.BoolFlag{Name: "html", Usage: "also print the filtered markup"},
				},
				Action: PreviewAction,
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("renderctl failed")
	}
}
