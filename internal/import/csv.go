package importfeeds

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"reddot-watch/feedsreader/internal/models"
)

// CSVHeader lists the columns of the subscription CSV format. An optional
// "id" column keeps the feed identifiers of an export.
var CSVHeader = []string{"category", "title", "type", "html_url", "xml_url"}

// ParseCSV reads subscriptions from CSV data with a header row. Rows that
// cannot be read are reported as line errors and skipped.
func ParseCSV(r io.Reader) ([]Subscription, []string, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}
	log.Debug().Strs("header", header).Msg("CSV header read")

	columns := make(map[string]int, len(header))
	for i, column := range header {
		columns[strings.ToLower(strings.TrimSpace(column))] = i
	}
	if _, ok := columns["xml_url"]; !ok {
		return nil, nil, errors.New("required column 'xml_url' not found in CSV header")
	}

	get := func(record []string, column string) string {
		i, ok := columns[column]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var subs []Subscription
	var lineErrors []string
	line := 1
	for {
		line++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn().Err(err).Int("line", line).Msg("Error reading CSV line")
			lineErrors = append(lineErrors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		if len(record) == 0 || (len(record) == 1 && record[0] == "") {
			continue
		}

		sub := Subscription{
			Line:     line,
			Category: get(record, "category"),
			Title:    get(record, "title"),
			Type:     get(record, "type"),
			HTMLURL:  get(record, "html_url"),
			XMLURL:   get(record, "xml_url"),
		}
		if raw := get(record, "id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				lineErrors = append(lineErrors, fmt.Sprintf("line %d: invalid id %q", line, raw))
				continue
			}
			sub.ID = id
		}
		subs = append(subs, sub)
	}

	return subs, lineErrors, nil
}

// WriteCSV writes the catalogue in the format read by ParseCSV, including
// the feed identifiers.
func WriteCSV(w io.Writer, categories []models.Category, feeds []models.Feed) error {
	titles := make(map[int64]string, len(categories))
	for _, c := range categories {
		titles[c.ID] = c.Title
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"id"}, CSVHeader...)); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, f := range feeds {
		category := titles[f.CategoryID]
		if f.CategoryID == models.DefaultCategoryID {
			category = ""
		}
		record := []string{
			strconv.FormatInt(f.ID, 10),
			category,
			f.Title,
			f.Type,
			f.HTMLURL,
			f.XMLURL,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
