package records

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/dtnitsch/llm-web-digest/internal/common"
	"github.com/dtnitsch/llm-web-digest/models"
	"github.com/dtnitsch/llm-web-digest/pkg/db"
	"github.com/dtnitsch/llm-web-digest/pkg/export"
	"github.com/dtnitsch/llm-web-digest/pkg/mapreduce"
)

func ListAction(c *cli.Context) error {
	store, err := common.OpenStore(c, common.FromContext(c).Logger)
	if err != nil {
		return err
	}
	ctx := common.Context(c)

	var records []models.Record
	switch {
	case c.IsSet("url"):
		records, err = store.FindByURL(ctx, c.String("url"))
	case c.IsSet("date"):
		records, err = store.FindByDate(ctx, c.String("date"))
	default:
		records, err = store.Search(ctx, c.String("search"))
	}
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	// --url and --date go through the index lookups; --search still applies.
	if (c.IsSet("url") || c.IsSet("date")) && c.String("search") != "" {
		records = filter(records, c.String("search"))
	}
	models.SortNewestFirst(records)

	if limit := c.Int("limit"); limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	return writeRecords(os.Stdout, c.String("format"), records)
}

func filter(records []models.Record, term string) []models.Record {
	var out []models.Record
	for _, r := range records {
		if r.Matches(term) {
			out = append(out, r)
		}
	}
	return out
}

func writeRecords(w io.Writer, format string, records []models.Record) error {
	switch format {
	case "", "table":
		if len(records) == 0 {
			fmt.Fprintln(w, "No records found")
			return nil
		}
		writeTable(w, records)
		fmt.Fprintf(w, "\nTotal: %d records\n", len(records))
		fmt.Fprintf(w, "\nTip: Use 'lwd records show <id>' to see the summary\n")
		return nil
	case "yaml":
		if records == nil {
			records = []models.Record{}
		}
		data, err := yaml.Marshal(records)
		if err != nil {
			return fmt.Errorf("failed to marshal records: %w", err)
		}
		_, err = w.Write(data)
		return err
	}
	return fmt.Errorf("unknown format: %s (want table or yaml)", format)
}

func ShowAction(c *cli.Context) error {
	id, err := recordID(c)
	if err != nil {
		return err
	}
	store, err := common.OpenStore(c, common.FromContext(c).Logger)
	if err != nil {
		return err
	}

	rec, err := store.GetByID(common.Context(c), id)
	if err != nil {
		return notFound(err, id)
	}

	if c.String("format") == "yaml" {
		data, err := yaml.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		fmt.Print(string(data))
		return nil
	}
	writeDetail(os.Stdout, rec)
	return nil
}

func NotesAction(c *cli.Context) error {
	id, err := recordID(c)
	if err != nil {
		return err
	}
	if c.NArg() < 2 {
		return cli.Exit("usage: lwd records notes <id> <text>", 2)
	}
	notes := strings.Join(c.Args().Tail(), " ")

	store, err := common.OpenStore(c, common.FromContext(c).Logger)
	if err != nil {
		return err
	}
	if err := store.UpdateNotes(common.Context(c), id, notes); err != nil {
		return notFound(err, id)
	}
	fmt.Printf("Notes updated for record %d\n", id)
	return nil
}

func KeywordsAction(c *cli.Context) error {
	store, err := common.OpenStore(c, common.FromContext(c).Logger)
	if err != nil {
		return err
	}
	records, err := store.GetAll(common.Context(c))
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}

	top := mapreduce.TopKeywords(mapreduce.Tally(records), c.Int("top"))
	if c.String("format") == "yaml" {
		data, err := yaml.Marshal(top)
		if err != nil {
			return fmt.Errorf("failed to marshal keywords: %w", err)
		}
		fmt.Print(string(data))
		return nil
	}

	if len(top) == 0 {
		fmt.Println("No keywords found")
		return nil
	}
	for i, kc := range top {
		fmt.Printf("%d. %s: %d\n", i+1, kc.Keyword, kc.Count)
	}
	return nil
}

func ExportAction(c *cli.Context) error {
	logger := common.FromContext(c).Logger
	store, err := common.OpenStore(c, logger)
	if err != nil {
		return err
	}
	records, err := store.GetAll(common.Context(c))
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}
	if len(records) == 0 {
		return cli.Exit("no records to export", 1)
	}

	path, err := export.ExportFile(c.String("dir"), records, c.String("layout"), time.Now())
	if err != nil {
		return err
	}
	logger.Info("records exported", "path", path, "count", len(records))
	fmt.Printf("Exported %d records to %s\n", len(records), path)
	return nil
}

func ClearAction(c *cli.Context) error {
	store, err := common.OpenStore(c, common.FromContext(c).Logger)
	if err != nil {
		return err
	}
	ctx := common.Context(c)

	n, err := store.Count(ctx)
	if err != nil {
		return err
	}
	if !c.Bool("yes") {
		fmt.Fprintf(os.Stderr, "This deletes all %d records and cannot be undone. Re-run with --yes to confirm.\n", n)
		return cli.Exit("", 1)
	}
	if err := store.Clear(ctx); err != nil {
		return err
	}
	fmt.Printf("Deleted %d records\n", n)
	return nil
}

func recordID(c *cli.Context) (int64, error) {
	if c.NArg() == 0 {
		return 0, cli.Exit("record id required", 2)
	}
	id, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid record ID: %s", c.Args().First())
	}
	return id, nil
}

func notFound(err error, id int64) error {
	if errors.Is(err, db.ErrNotFound) {
		return cli.Exit(fmt.Sprintf("record %d not found", id), 1)
	}
	return err
}
