package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"sort"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
)

const (
	licensesSheet  = "Licenses"
	downloadsSheet = "Downloads"
	exportWorkers  = 8
)

var (
	licenseHeader  = []interface{}{"License Key", "Email", "Type", "Issued At", "Valid Until", "Download Count"}
	downloadHeader = []interface{}{"License Key", "Timestamp", "IP", "User Agent"}
)

func (c *cli) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(c.stdout)
	out := fs.String("out", "licenses.xlsx", "output workbook path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	st, closeStore, err := c.openStore(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer closeStore()

	views, err := collectViews(ctx, st)
	if err != nil {
		return err
	}

	if err := writeWorkbook(*out, views); err != nil {
		return err
	}

	c.logger.Info("licenses exported",
		slog.String("path", *out),
		slog.Int("licenses", len(views)))
	fmt.Fprintf(c.stdout, "exported %d licenses to %s\n", len(views), *out)
	return nil
}

// collectViews loads every stored license concurrently, ordered by key.
// Keys that vanish between SCAN and GET are skipped.
func collectViews(ctx context.Context, st licenseReader) ([]storedView, error) {
	keys, err := st.Keys(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	views := make([]*storedView, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(exportWorkers)
	for i, key := range keys {
		g.Go(func() error {
			record, err := st.Get(gctx, key)
			if err != nil {
				return err
			}
			if record == nil {
				return nil
			}
			logs, err := st.DownloadLogs(gctx, key)
			if err != nil {
				return err
			}
			views[i] = &storedView{Key: key, License: *record, Downloads: logs}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make([]storedView, 0, len(views))
	for _, v := range views {
		if v != nil {
			result = append(result, *v)
		}
	}
	return result, nil
}

func writeWorkbook(path string, views []storedView) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", licensesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(downloadsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	if err := f.SetSheetRow(licensesSheet, "A1", &licenseHeader); err != nil {
		return err
	}
	if err := f.SetSheetRow(downloadsSheet, "A1", &downloadHeader); err != nil {
		return err
	}

	downloadRow := 2
	for i, v := range views {
		validUntil := ""
		if v.License.ValidUntil != nil {
			validUntil = *v.License.ValidUntil
		}
		row := []interface{}{v.Key, v.License.Email, string(v.License.Type), v.License.IssuedAt, validUntil, v.License.DownloadCount}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(licensesSheet, cell, &row); err != nil {
			return err
		}

		for _, d := range v.Downloads {
			dl := []interface{}{v.Key, d.Timestamp, d.IP, d.UserAgent}
			cell, _ := excelize.CoordinatesToCellName(1, downloadRow)
			if err := f.SetSheetRow(downloadsSheet, cell, &dl); err != nil {
				return err
			}
			downloadRow++
		}
	}

	_ = f.SetColWidth(licensesSheet, "A", "B", 28)
	_ = f.SetColWidth(licensesSheet, "C", "F", 16)
	_ = f.SetColWidth(downloadsSheet, "A", "B", 28)
	_ = f.SetColWidth(downloadsSheet, "D", "D", 48)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
