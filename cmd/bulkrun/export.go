package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"descriptai/internal/driver"
	"descriptai/pkg/zip"
)

var resultHeader = []string{
	"index", "label", "status", "attempts", "error",
	"seo", "emotional", "short",
	"product_name", "category", "features", "audience",
}

// resultsCSV renders one row per item in index order.
func resultsCSV(sum driver.Summary) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(resultHeader); err != nil {
		return nil, err
	}
	for _, o := range sum.Outcomes {
		row := []string{strconv.Itoa(o.Index), o.Label, string(o.Status), strconv.Itoa(o.Attempts), o.Error, "", "", "", "", "", "", ""}
		if d := o.Descriptions; d != nil {
			row[5], row[6], row[7] = d.SEO, d.Emotional, d.Short
		}
		if x := o.Extracted; x != nil {
			row[8], row[9], row[10], row[11] = x.ProductName, x.Category, x.Features, x.Audience
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

type summaryFile struct {
	JobID        string    `json:"job_id"`
	Status       string    `json:"status"`
	Total        int       `json:"total_items"`
	Processed    int       `json:"processed_items"`
	Failed       int       `json:"failed_items"`
	Cancelled    bool      `json:"cancelled"`
	ErrorMessage *string   `json:"error_message"`
	FinishedAt   time.Time `json:"finished_at"`
}

// writeResults writes a CSV, or a zip holding the CSV and a JSON summary when
// path ends in .zip.
func writeResults(path string, sum driver.Summary, now time.Time) error {
	rows, err := resultsCSV(sum)
	if err != nil {
		return err
	}
	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return os.WriteFile(path, rows, 0o644)
	}
	meta, err := json.MarshalIndent(summaryFile{
		JobID:        sum.JobID,
		Status:       string(sum.Status),
		Total:        sum.Total,
		Processed:    sum.Processed,
		Failed:       sum.Failed,
		Cancelled:    sum.Cancelled,
		ErrorMessage: sum.ErrorMessage,
		FinishedAt:   now.UTC(),
	}, "", "  ")
	if err != nil {
		return err
	}
	archive, err := zip.Archive([]zip.File{
		{Name: "results.csv", Data: rows, Modified: now},
		{Name: "summary.json", Data: meta, Modified: now},
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, archive, 0o644)
}
