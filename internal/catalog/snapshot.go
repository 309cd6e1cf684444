package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"archivist/internal/model"
)

// Column names of the snapshot file, in write order.
const (
	ColumnID           = "text_id"
	ColumnURL          = "url"
	ColumnSourceSlug   = "source_slug"
	ColumnOriginalSlug = "original_slug"
	ColumnSkip         = "skip"
	ColumnComments     = "comments"
	ColumnLastStatus   = "last_status"
	ColumnLastChecked  = "last_checked"
)

// Header is the full snapshot header.
var Header = []string{
	ColumnID,
	ColumnURL,
	ColumnSourceSlug,
	ColumnOriginalSlug,
	ColumnSkip,
	ColumnComments,
	ColumnLastStatus,
	ColumnLastChecked,
}

// readSnapshot parses a snapshot. Columns are matched by header name; columns
// other than text_id and url may be missing and read as empty.
func readSnapshot(r io.Reader) ([]model.Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{ColumnID, ColumnURL} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	field := func(record []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	var entries []model.Entry
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)

		id, err := strconv.Atoi(strings.TrimSpace(field(record, ColumnID)))
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("line %d: invalid %s %q", line, ColumnID, field(record, ColumnID))
		}
		e := model.Entry{
			ID:           id,
			URL:          field(record, ColumnURL),
			SourceSlug:   field(record, ColumnSourceSlug),
			OriginalSlug: field(record, ColumnOriginalSlug),
			Skip:         field(record, ColumnSkip),
			Comments:     field(record, ColumnComments),
		}
		if e.URL == "" {
			return nil, fmt.Errorf("line %d: empty %s", line, ColumnURL)
		}
		if s := strings.TrimSpace(field(record, ColumnLastStatus)); s != "" {
			if e.LastStatus, err = strconv.Atoi(s); err != nil {
				return nil, fmt.Errorf("line %d: invalid %s %q", line, ColumnLastStatus, s)
			}
		}
		if s := strings.TrimSpace(field(record, ColumnLastChecked)); s != "" {
			if e.LastChecked, err = time.Parse(time.RFC3339Nano, s); err != nil {
				return nil, fmt.Errorf("line %d: invalid %s %q", line, ColumnLastChecked, s)
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// writeSnapshot writes entries under the full header. Unset status and
// timestamp columns are written empty.
func writeSnapshot(w io.Writer, entries []model.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, e := range entries {
		status := ""
		if e.LastStatus != 0 {
			status = strconv.Itoa(e.LastStatus)
		}
		checked := ""
		if e.Checked() {
			checked = e.LastChecked.UTC().Format(time.RFC3339Nano)
		}
		if err := cw.Write([]string{
			strconv.Itoa(e.ID),
			e.URL,
			e.SourceSlug,
			e.OriginalSlug,
			e.Skip,
			e.Comments,
			status,
			checked,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
