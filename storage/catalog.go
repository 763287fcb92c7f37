package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"lunatui/config"
)

// RecordMeta summarizes one exported conversation file for listing and
// indexing.
type RecordMeta struct {
	ID           string
	Title        string
	Username     string
	DateCreated  string
	MessageCount int
	Path         string
}

// ReadCatalog parses every .json file in the export directory, newest first.
// A file that cannot be read or parsed is skipped; it never aborts the
// listing. A missing directory yields an empty catalog.
func ReadCatalog(dir string) ([][]ExportEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return [][]ExportEntry{}, nil
		}
		return nil, err
	}

	type dated struct {
		record  []ExportEntry
		modTime time.Time
	}

	var records []dated

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		record, err := readRecord(path)
		if err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Catalog] skipping %s: %v", path, err)
			}
			continue
		}

		modTime := time.Time{}
		if info, err := entry.Info(); err == nil {
			modTime = info.ModTime()
		}

		records = append(records, dated{record: record, modTime: modTime})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].modTime.After(records[j].modTime)
	})

	out := make([][]ExportEntry, len(records))
	for i, r := range records {
		out[i] = r.record
	}
	return out, nil
}

// RecordMetaFromFile derives listing metadata from one exported file. The id
// is the file name without extension, which embeds the generated export id.
func RecordMetaFromFile(path string) (RecordMeta, error) {
	record, err := readRecord(path)
	if err != nil {
		return RecordMeta{}, err
	}

	meta := RecordMeta{
		ID:   strings.TrimSuffix(filepath.Base(path), ".json"),
		Path: path,
	}

	for _, entry := range record {
		switch {
		case entry.Status == ExportStatusBegin:
			meta.Title = entry.Title
			meta.Username = entry.Username
			meta.DateCreated = entry.DateCreated
		case entry.Role != "":
			meta.MessageCount++
		}
	}

	return meta, nil
}

func readRecord(path string) ([]ExportEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var record []ExportEntry
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}

	return record, nil
}
