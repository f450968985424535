// Package importer loads delivery cities from CSV exports into postgres.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"marketplace-checkout/internal/domain"
)

type CityWriter interface {
	UpsertDeliveryCities(ctx context.Context, cities []domain.DeliveryCity) (int, error)
}

const defaultBatchSize = 200

var requiredHeaders = []string{"id", "name", "region_name"}

// CSVImporter reads an `id,name,region_name,icon` export and upserts the cities.
type CSVImporter struct {
	reader    *csv.Reader
	repo      CityWriter
	batchSize int
}

// Result counts rows read and rows that actually changed in the table.
type Result struct {
	Read    int
	Changed int
}

func NewCSVImporter(r io.Reader, repo CityWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{
		reader:    csvr,
		repo:      repo,
		batchSize: defaultBatchSize,
	}
}

// Run parses every row before writing anything, so a bad file changes nothing.
func (i *CSVImporter) Run(ctx context.Context) (Result, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return Result{}, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, h := range requiredHeaders {
		if _, ok := index[h]; !ok {
			return Result{}, fmt.Errorf("missing column %q", h)
		}
	}

	var (
		cities []domain.DeliveryCity
		seen   = map[string]int{}
		line   = 1
	)
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return Result{}, fmt.Errorf("read row %d: %w", line, err)
		}
		city, ok, err := parseRow(record, index)
		if err != nil {
			return Result{}, fmt.Errorf("row %d: %w", line, err)
		}
		if !ok {
			continue
		}
		if prev, dup := seen[city.ID]; dup {
			return Result{}, fmt.Errorf("row %d: city %q already defined on row %d", line, city.ID, prev)
		}
		seen[city.ID] = line
		cities = append(cities, city)
	}

	res := Result{Read: len(cities)}
	for start := 0; start < len(cities); start += i.batchSize {
		end := start + i.batchSize
		if end > len(cities) {
			end = len(cities)
		}
		n, err := i.repo.UpsertDeliveryCities(ctx, cities[start:end])
		if err != nil {
			return res, fmt.Errorf("upsert delivery cities: %w", err)
		}
		res.Changed += n
	}
	return res, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

// parseRow returns ok=false for blank rows.
func parseRow(record []string, index map[string]int) (domain.DeliveryCity, bool, error) {
	c := domain.DeliveryCity{
		ID:         strings.ToLower(pick(record, index, "id")),
		Name:       pick(record, index, "name"),
		RegionName: pick(record, index, "region_name"),
		Icon:       pick(record, index, "icon"),
	}
	if c == (domain.DeliveryCity{}) {
		return c, false, nil
	}
	switch {
	case c.ID == "":
		return c, false, errors.New("id required")
	case strings.ContainsAny(c.ID, " \t/"):
		return c, false, fmt.Errorf("invalid id %q", c.ID)
	case c.Name == "":
		return c, false, fmt.Errorf("city %q: name required", c.ID)
	case c.RegionName == "":
		return c, false, fmt.Errorf("city %q: region_name required", c.ID)
	}
	return c, true, nil
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
