package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tenaplex/tenaplex/pkg/api"
)

func (c *Cli) runList(ctx context.Context) error {
	datasets, err := c.apiClient.ListDatasets(ctx)
	if err != nil {
		return err
	}

	if len(datasets) == 0 {
		c.io.Println("No datasets uploaded yet.")
		return nil
	}

	c.io.Println("Datasets:")
	for _, d := range datasets {
		c.io.Printf("  %s  %-30s %6d rows  %s\n", d.ID, d.Name, d.RowCount, d.CreatedAt)
	}

	return nil
}

func (c *Cli) runGet(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: get <dataset-id>")
	}

	dataset, err := c.apiClient.GetDataset(ctx, args[0])
	if err != nil {
		return err
	}

	c.io.Printf("Dataset %s (%s), %d rows\n", dataset.Name, dataset.ID, dataset.RowCount)
	c.io.Println("Columns:")
	for _, col := range dataset.Columns {
		c.io.Printf("  %-24s %s\n", col.Name, col.Type)
	}

	// Print a small preview rather than dumping everything.
	const previewRows = 10
	for i, row := range dataset.Data {
		if i >= previewRows {
			c.io.Printf("  ... and %d more rows\n", len(dataset.Data)-previewRows)
			break
		}
		c.io.Printf("  %v\n", row)
	}

	return nil
}

func (c *Cli) runUpload(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: upload <file.csv>")
	}

	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	meta, err := c.apiClient.UploadDataset(ctx, filepath.Base(path), content)
	if err != nil {
		return err
	}

	c.io.Printf("Uploaded %s: %d rows, %d columns (id %s)\n",
		meta.Name, meta.RowCount, len(meta.Columns), meta.ID)

	return nil
}

func (c *Cli) runAggregate(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: aggregate <dataset-id> <group-by> <metric> [metric...]")
	}

	resp, err := c.apiClient.Aggregate(ctx, args[0], api.AggregateRequest{
		GroupBy: args[1],
		Metrics: args[2:],
	})
	if err != nil {
		return err
	}

	c.io.Printf("Grouped by %s:\n", resp.GroupBy)
	for _, result := range resp.Results {
		c.io.Printf("  %s\n", result.GroupValue)
		for metric, stats := range result.Aggregations {
			c.io.Printf("    %-20s min=%.3f max=%.3f avg=%.3f\n", metric, stats.Min, stats.Max, stats.Avg)
		}
	}

	return nil
}
