package sources

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"archivist/internal/archivist"
	"archivist/internal/model"
)

// Accepted header names for the two corrections columns.
var (
	originalColumns  = []string{"original_slug", "ceneton_slug", "originalSlug"}
	correctedColumns = []string{"corrected_slug", "correctedSlug"}
)

// fingerprintLength is the number of hex digits of the file hash kept as the batch fingerprint.
const fingerprintLength = 8

// ReadCorrections parses a corrections CSV file. An empty name defaults to the
// file's base name without extension.
func ReadCorrections(path, name string) (archivist.CorrectionBatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return archivist.CorrectionBatch{}, fmt.Errorf("reading corrections: %w", err)
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	corrections, err := parseCorrections(bytes.NewReader(data))
	if err != nil {
		return archivist.CorrectionBatch{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return archivist.CorrectionBatch{
		Name:        name,
		Fingerprint: Fingerprint(data),
		Corrections: corrections,
	}, nil
}

// Fingerprint returns the short content hash identifying a corrections file.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:fingerprintLength]
}

func parseCorrections(r io.Reader) ([]model.Correction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("missing header")
		}
		return nil, err
	}
	orig, err := findColumn(header, originalColumns)
	if err != nil {
		return nil, err
	}
	corr, err := findColumn(header, correctedColumns)
	if err != nil {
		return nil, err
	}

	var out []model.Correction
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		c := model.Correction{}
		if orig < len(record) {
			c.OriginalSlug = strings.TrimSpace(record[orig])
		}
		if corr < len(record) {
			c.CorrectedSlug = strings.TrimSpace(record[corr])
		}
		out = append(out, c)
	}
	return out, nil
}

func findColumn(header []string, names []string) (int, error) {
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		for _, name := range names {
			if h == name {
				return i, nil
			}
		}
	}
	return -1, fmt.Errorf("missing column %s", names[0])
}
