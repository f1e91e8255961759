package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/poiesic/crossmodal/config"
	"github.com/poiesic/crossmodal/core"
	"github.com/poiesic/crossmodal/ingestion"
	"github.com/poiesic/crossmodal/repair"
	"github.com/poiesic/crossmodal/search"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

func configInitCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return errors.New("config path is required")
	}
	fs := afero.NewOsFs()
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return err
	}
	if exists && !c.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.Write(fs, path, config.Default()); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Fprintf(c.App.ErrWriter, "Wrote %s\n", path)
	return nil
}

func configShowCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(data)
	return err
}

func submitCommand(c *cli.Context) error {
	var contents []core.Content
	for _, text := range c.StringSlice("text") {
		contents = append(contents, core.TextContent{Text: text})
	}
	fs := afero.NewOsFs()
	for _, path := range c.Args().Slice() {
		content, err := readContent(fs, path)
		if err != nil {
			return err
		}
		contents = append(contents, content)
	}
	if len(contents) == 0 {
		return errors.New("nothing to submit: pass --text or file arguments")
	}

	db, _, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	results := make([]*ingestion.SubmitResult, 0, len(contents))
	for _, content := range contents {
		result, err := db.Submit(c.Context, content)
		if err != nil {
			return fmt.Errorf("submission failed: %w", err)
		}
		results = append(results, result)
	}

	if c.Bool("json") {
		out := make([]submitJSON, len(results))
		for i, r := range results {
			out[i] = submitJSON{Key: r.Key, Created: r.Created, Neighbors: toResultJSON(r.Neighbors)}
		}
		return writeJSON(c.App.Writer, out)
	}
	for i, r := range results {
		status := "stored"
		if !r.Created {
			status = "exists"
		}
		fmt.Fprintf(c.App.Writer, "%s %s (%s, %d neighbors)\n", r.Key, status, contents[i].Modality(), len(r.Neighbors))
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	var query core.Content
	switch {
	case c.String("text") != "" && c.NArg() > 0:
		return errors.New("pass either --text or a file, not both")
	case c.String("text") != "":
		query = core.TextContent{Text: c.String("text")}
	case c.NArg() == 1:
		content, err := readContent(afero.NewOsFs(), c.Args().First())
		if err != nil {
			return err
		}
		query = content
	default:
		return errors.New("a query is required: pass --text or one file")
	}

	db, _, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	params, err := searchParams(c, db.SearchDefaults())
	if err != nil {
		return err
	}
	results, err := db.SearchWithParams(c.Context, query, params)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if c.Bool("json") {
		return writeJSON(c.App.Writer, toResultJSON(results))
	}
	fmt.Fprintf(c.App.Writer, "Found %d hits\n", len(results))
	for i, hit := range results {
		fmt.Fprintf(c.App.Writer, "%d: [%s] '%s' (%s)[%0.3f]\n", i, hit.Modality, hit.Payload, hit.Id, hit.Score)
	}
	return nil
}

// searchParams applies the search command's flags over defaults.
func searchParams(c *cli.Context, p search.Params) (search.Params, error) {
	if c.IsSet("top-k") {
		p.TopK = c.Int("top-k")
	}
	if c.IsSet("mode") {
		mode, err := search.ParseMode(c.String("mode"))
		if err != nil {
			return p, err
		}
		p.Mode = mode
	}
	if c.IsSet("depth") {
		p.Depth = c.Int("depth")
	}
	if c.IsSet("alpha") {
		p.Alpha = c.Float64("alpha")
	}
	if c.Bool("no-expand") {
		p.Expand = false
	}
	return p, nil
}

func graphCommand(c *cli.Context) error {
	db, _, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	data, err := db.GraphData(c.Context)
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, data)
}

func statsCommand(c *cli.Context) error {
	db, _, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.Stats(c.Context)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, stats)
	}
	fmt.Fprintf(c.App.Writer, "Documents: %d\nGraph nodes: %d\nGraph edges: %d\n", stats.Documents, stats.Nodes, stats.Edges)
	return nil
}

func seedCommand(c *cli.Context) error {
	dir := c.Args().First()
	if dir == "" && c.String("lines") == "" {
		return errors.New("a directory or --lines file is required")
	}
	fs := afero.NewOsFs()

	var contents []core.Content
	if dir != "" {
		found, err := collectContents(fs, dir)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", dir, err)
		}
		contents = append(contents, found...)
	}
	if path := c.String("lines"); path != "" {
		lines, err := readLines(fs, path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		contents = append(contents, lines...)
	}

	db, _, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	var opts []ingestion.Option
	if c.IsSet("workers") {
		opts = append(opts, ingestion.WithPoolSize(c.Int("workers")))
	}
	pipeline, err := db.NewBulkPipeline(opts...)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	outcomes, err := pipeline.SubmitAll(c.Context, contents)
	if err != nil {
		return err
	}
	created, existing, failed := 0, 0, 0
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			failed++
			fmt.Fprintf(c.App.ErrWriter, "failed: %s content: %v\n", o.Content.Modality(), o.Err)
		case o.Result.Created:
			created++
		default:
			existing++
		}
	}
	fmt.Fprintf(c.App.Writer, "Seeded %d documents (%d new, %d existing, %d failed)\n", len(outcomes), created, existing, failed)
	if failed > 0 {
		return fmt.Errorf("%d submissions failed", failed)
	}
	return nil
}

func repairCommand(c *cli.Context) error {
	repairConfig := &repair.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
		RelinkAll:      c.Bool("all"),
	}

	// Validate config
	if repairConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if repairConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if repairConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	db, cfg, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()
	repairConfig.NeighborCount = cfg.Submit.Neighbors

	repairer, err := db.NewRepairer(repairConfig, c.App.ErrWriter)
	if err != nil {
		return err
	}
	stats, err := repairer.Run(c.Context)
	if err != nil {
		return fmt.Errorf("repair failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Scanned %d documents, relinked %d in %s\n", stats.Scanned, stats.Relinked, stats.Elapsed)
	return nil
}

type submitJSON struct {
	Key       core.ID      `json:"key"`
	Created   bool         `json:"created"`
	Neighbors []resultJSON `json:"neighbors"`
}

type resultJSON struct {
	ID       core.ID `json:"id"`
	Modality string  `json:"type"`
	Payload  string  `json:"data"`
	Score    float64 `json:"score"`
}

func toResultJSON(results []core.Neighbor) []resultJSON {
	out := make([]resultJSON, len(results))
	for i, r := range results {
		out[i] = resultJSON{ID: r.Id, Modality: r.Modality.String(), Payload: r.Payload, Score: r.Score}
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
