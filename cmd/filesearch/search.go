package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/filesearch/internal/debug"
	"github.com/standardbeagle/filesearch/internal/display"
	"github.com/standardbeagle/filesearch/internal/errors"
	"github.com/standardbeagle/filesearch/internal/search"
	"github.com/standardbeagle/filesearch/internal/walk"
	"github.com/standardbeagle/filesearch/internal/watch"
)

func searchCommandSpec() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Aliases:   []string{"s"},
		Usage:     "Search the workspace",
		ArgsUsage: "<text and Key:Value filters...>",
		Description: "Words are joined with spaces into one query. Filters: Location, Exclude, Name,\n" +
			"NameLower, CaseSensitive, WholeWord, RegEx. Example:\n\n" +
			"   filesearch search 'hello world' Location:/file/src WholeWord:true",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "sort",
				Usage: "Sort order: 'Path asc', 'Path desc', 'NameLower asc', 'NameLower desc'",
			},
			&cli.IntFlag{
				Name:    "rows",
				Aliases: []string{"n"},
				Usage:   "Page size (default from config search.default_rows)",
			},
			&cli.IntFlag{
				Name:  "start",
				Usage: "Offset of the first result",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output the response document as JSON",
			},
			&cli.BoolFlag{
				Name:    "compact",
				Aliases: []string{"c"},
				Usage:   "Output one path per line",
			},
			&cli.BoolFlag{
				Name:    "locations",
				Aliases: []string{"l"},
				Usage:   "Show each file's Location",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Re-run the search whenever files in its scope change",
			},
		},
		Action: searchCommand,
	}
}

func searchCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}

	req := search.Request{
		Query: strings.Join(c.Args().Slice(), " "),
		Sort:  c.String("sort"),
		Rows:  -1,
		Start: c.Int("start"),
	}
	if c.IsSet("rows") {
		req.Rows = c.Int("rows")
		if req.Rows < 0 {
			return errors.NewParseError("rows", fmt.Sprint(req.Rows), stderrors.New("must not be negative"))
		}
	}

	formatter := display.NewPageFormatter(display.FormatterOptions{
		Format:       outputFormat(c),
		ShowLocation: c.Bool("locations"),
		ShowElapsed:  true,
	})

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	resp, err := engine.Search(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprint(c.App.Writer, formatter.Format(resp))

	if !c.Bool("watch") {
		return nil
	}
	return watchSearch(ctx, c, engine, req, formatter, digest(resp), cfg.Search.WatchDebounce())
}

// watchSearch re-runs req after each batch of changes under its scope and
// prints the page whenever it differs from the last one printed.
func watchSearch(ctx context.Context, c *cli.Context, engine *search.Engine, req search.Request,
	formatter *display.PageFormatter, last uint64, debounce time.Duration) error {
	scope, err := engine.Scope(req.Query)
	if err != nil {
		return err
	}

	w, err := watch.New(scope, watch.Options{
		Debounce: debounce,
		Walk: walk.Options{
			WorkspaceRoot:  engine.Root(),
			IgnorePatterns: engine.Exclude(),
		},
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.ErrWriter, "Watching %s for changes (Ctrl+C to stop)\n", scope)
	return w.Run(ctx, func(changed []string) error {
		resp, err := engine.Search(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// scope may have been removed; keep watching
			fmt.Fprintf(c.App.ErrWriter, "Error: %v\n", err)
			return nil
		}
		d := digest(resp)
		if d == last {
			debug.LogSearch("%d changes, results unchanged\n", len(changed))
			return nil
		}
		last = d
		fmt.Fprintf(c.App.Writer, "\n--- %d changed: %s\n", len(changed), summarize(changed, 3))
		fmt.Fprint(c.App.Writer, formatter.Format(resp))
		return nil
	})
}

func outputFormat(c *cli.Context) string {
	switch {
	case c.Bool("json"):
		return "json"
	case c.Bool("compact"):
		return "compact"
	default:
		return "text"
	}
}

// digest identifies a result page independent of timing.
func digest(resp *search.Response) uint64 {
	data, err := json.Marshal(resp.Body)
	if err != nil {
		return 0
	}
	return xxhash.Sum64(data)
}

func summarize(paths []string, limit int) string {
	if len(paths) <= limit {
		return strings.Join(paths, ", ")
	}
	return strings.Join(paths[:limit], ", ") + fmt.Sprintf(" and %d more", len(paths)-limit)
}

// exitCode maps request errors to distinct process exit codes.
func exitCode(err error) int {
	switch {
	case errors.IsClientError(err):
		return 2
	case errors.IsScopeError(err):
		return 3
	case stderrors.Is(err, context.DeadlineExceeded):
		return 4
	default:
		return 1
	}
}
