// Package itemsource loads bulk work items from local files.
package itemsource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"

	"descriptai/internal/domain"
)

// ErrNoItems is returned when a source yields nothing to process.
var ErrNoItems = errors.New("no valid products found")

// Header aliases per field, compared case-folded with spaces, dashes and
// underscores removed.
var headerAliases = map[string][]string{
	"productName": {"product_name", "productName", "name", "Product Name"},
	"category":    {"category"},
	"features":    {"features", "key_features"},
	"audience":    {"audience", "target_audience"},
	"tone":        {"tone"},
}

var fold = cases.Fold()

func headerKey(h string) string {
	h = fold.String(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

// TemplateCSV is the header row and one example product.
const TemplateCSV = "product_name,category,features,audience,tone\n" +
	"Example Product,Electronics,\"Feature 1, Feature 2\",Young adults,professional\n"

// LoadCSV reads items from a CSV with a header row. Rows without a product
// name are skipped. limit <= 0 disables the item cap.
func LoadCSV(r io.Reader, limit int) ([]domain.WorkItem, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrNoItems)
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := columnIndex(header)
	if _, ok := cols["productName"]; !ok {
		return nil, fmt.Errorf("%w: ensure a 'product_name' column exists", ErrNoItems)
	}

	var items []domain.WorkItem
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		item := domain.WorkItem{
			ProductName: field(rec, cols, "productName"),
			Category:    field(rec, cols, "category"),
			Features:    field(rec, cols, "features"),
			Audience:    field(rec, cols, "audience"),
			Tone:        field(rec, cols, "tone"),
		}
		if item.ProductName == "" {
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: ensure a 'product_name' column exists", ErrNoItems)
	}
	if limit > 0 && len(items) > limit {
		return nil, fmt.Errorf("%w: maximum %d items per upload, file has %d", domain.ErrQuotaExceeded, limit, len(items))
	}
	return items, nil
}

// columnIndex maps each field to the first header column matching one of its
// aliases.
func columnIndex(header []string) map[string]int {
	byKey := make(map[string]int, len(header))
	for i, h := range header {
		k := headerKey(h)
		if _, seen := byKey[k]; !seen {
			byKey[k] = i
		}
	}
	cols := map[string]int{}
	for field, aliases := range headerAliases {
		for _, a := range aliases {
			if i, ok := byKey[headerKey(a)]; ok {
				cols[field] = i
				break
			}
		}
	}
	return cols
}

func field(rec []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
