// Package source locates and parses the raw statistics for each category,
// either from delimited files on disk or from a SQL Server staging table.
package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mpawlak/statsync/pkg/logger"
	"github.com/mpawlak/statsync/pkg/models"
)

// CSVSource reads a category's rows from delimited files in a directory.
// File names encode the category and time period (<prefix>_<period>.csv,
// one file per sub-period); all matching files are aggregated newest-first
// into one logical sequence.
type CSVSource struct {
	Dir string
}

func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{Dir: dir}
}

func (s *CSVSource) Rows(ctx context.Context, cat models.Category) ([]models.RawRecord, error) {
	files, err := s.scan(cat)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s source files found in %s", cat, s.Dir)
	}

	var rows []models.RawRecord
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fileRows, err := parseFile(f)
		if err != nil {
			return nil, err
		}
		logger.Infof("%s: parsed %d rows from %s", cat, len(fileRows), filepath.Base(f))
		rows = append(rows, fileRows...)
	}
	return rows, nil
}

// scan returns the category's files ordered newest-first by modification
// time.
func (s *CSVSource) scan(cat models.Category) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("reading source directory %s: %w", s.Dir, err)
	}

	type candidate struct {
		path  string
		mtime int64
	}
	var found []candidate
	prefix := cat.FilePrefix()
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
		found = append(found, candidate{
			path:  filepath.Join(s.Dir, name),
			mtime: info.ModTime().UnixNano(),
		})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].mtime > found[j].mtime })

	paths := make([]string, len(found))
	for i, c := range found {
		paths[i] = c.path
	}
	return paths, nil
}

// parseFile reads one delimited file into raw records keyed by the header
// row's field names. Short rows leave trailing fields absent rather than
// empty.
func parseFile(path string) ([]models.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}

	var rows []models.RawRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		rec := make(models.RawRecord, len(header))
		for i, field := range header {
			if i < len(row) {
				rec[field] = row[i]
			}
		}
		rows = append(rows, rec)
	}
	return rows, nil
}
