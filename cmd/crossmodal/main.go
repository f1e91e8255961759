// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/crossmodal"
	"github.com/poiesic/crossmodal/config"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "crossmodal",
		Usage: "Multimodal semantic retrieval with a persistent relevance graph",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"CROSSMODAL_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log output format (text, json)",
				Value: "text",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory (overrides storage.path)",
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "Embedding service host URL (overrides embedding.host)",
			},
			&cli.IntFlag{
				Name:  "dimensions",
				Usage: "Embedding dimensions (overrides embedding.dimensions)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Manage the configuration file",
				Subcommands: []*cli.Command{
					{
						Name:      "init",
						Usage:     "Write the default configuration",
						ArgsUsage: "<path>",
						Action:    configInitCommand,
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "force",
								Usage: "Overwrite an existing file",
							},
						},
					},
					{
						Name:   "show",
						Usage:  "Print the effective configuration",
						Action: configShowCommand,
					},
				},
			},
			{
				Name:      "submit",
				Usage:     "Store text or files and link them into the relevance graph",
				ArgsUsage: "[file...]",
				Action:    submitCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "text",
						Aliases: []string{"t"},
						Usage:   "Text to submit (repeatable)",
					},
					jsonFlag,
				},
			},
			{
				Name:      "search",
				Usage:     "Find documents related to text or a file",
				ArgsUsage: "[file]",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "text",
						Aliases: []string{"t"},
						Usage:   "Text query",
					},
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of results (overrides search.top_k)",
					},
					&cli.StringFlag{
						Name:    "mode",
						Aliases: []string{"m"},
						Usage:   "Ranking mode: balanced or hybrid (overrides search.mode)",
					},
					&cli.IntFlag{
						Name:  "depth",
						Usage: "Graph expansion depth (overrides search.depth)",
					},
					&cli.Float64Flag{
						Name:  "alpha",
						Usage: "Hybrid fusion weight of vector similarity (overrides search.alpha)",
					},
					&cli.BoolFlag{
						Name:  "no-expand",
						Usage: "Disable graph expansion",
					},
					jsonFlag,
				},
			},
			{
				Name:   "graph",
				Usage:  "Export the relevance graph as JSON",
				Action: graphCommand,
			},
			{
				Name:   "stats",
				Usage:  "Show document and graph counts",
				Action: statsCommand,
				Flags:  []cli.Flag{jsonFlag},
			},
			{
				Name:      "seed",
				Usage:     "Submit every supported file under a directory",
				ArgsUsage: "<dir>",
				Action:    seedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "lines",
						Usage: "Also submit each non-empty line of this text file",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent submissions (overrides submit.pool_size)",
					},
				},
			},
			{
				Name:   "repair",
				Usage:  "Relink stored documents missing from the relevance graph",
				Action: repairCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N documents",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Relink every document, not only those missing from the graph",
					},
				},
			},
		},
	}
}

var jsonFlag = &cli.BoolFlag{
	Name:  "json",
	Usage: "Print JSON instead of text",
}

// loadConfig reads the configuration file and applies global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("db") {
		cfg.Storage.Backend = config.StorageBadger
		cfg.Storage.Path = c.String("db")
		cfg.Storage.InMemory = false
	}
	if c.IsSet("embedding-host") {
		cfg.Embedding.Host = c.String("embedding-host")
	}
	if c.IsSet("dimensions") {
		cfg.Embedding.Dimensions = c.Int("dimensions")
	}
	if !c.IsSet("log-level") && !c.IsSet("log-format") {
		logger, err := newLogger(c.App.ErrWriter, cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return nil, err
		}
		slog.SetDefault(logger)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openDatabase(c *cli.Context) (*crossmodal.Database, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	db, err := crossmodal.Open(c.Context, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, cfg, nil
}

func setupLogger(c *cli.Context) error {
	logger, err := newLogger(c.App.ErrWriter, c.String("log-level"), c.String("log-format"))
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("%w: must be one of debug, info, warn, error", err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q: must be text or json", format)
	}
}
