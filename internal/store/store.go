package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const sheetName = "Sheet1"

// Store reads and writes the evaluation workbook.
type Store struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Store {
	return &Store{logger: logger}
}

// Load reads the previously persisted rows from path. A missing workbook
// yields an empty set. Columns absent in older workbooks are backfilled with
// empty strings rather than failing the run.
func (s *Store) Load(path string) (*ResultSet, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &ResultSet{}, nil
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %q: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read workbook %q: %w", path, err)
	}

	if len(rows) == 0 {
		return &ResultSet{}, nil
	}

	index := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		index[strings.TrimSpace(name)] = i
	}

	for _, name := range columns {
		if _, ok := index[name]; !ok {
			s.logger.Debug("backfilling missing column", zap.String("column", name))
		}
	}

	set := &ResultSet{}
	for _, record := range rows[1:] {
		cell := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(record) {
				return ""
			}
			return record[i]
		}

		set.Append(&Row{
			AIRecommendation: cell("AI_recommendation"),
			Company:          cell("company"),
			Title:            cell("title"),
			Link:             cell("link"),
			YearsRequired:    cell("years_required"),
			Description:      cell("description"),
			PostedDate:       cell("posted_date"),
		})
	}

	return set, nil
}

// Save writes the set to path, or to a date-suffixed sibling when another
// process holds an exclusive lock on path (a workbook open in Excel, a
// concurrent run). It returns the path that actually received the data.
func (s *Store) Save(set *ResultSet, path string) (string, error) {
	target := path

	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil || !locked {
		target = fallbackPath(path)
		s.logger.Warn("primary output is locked, writing to fallback",
			zap.String("primary", path),
			zap.String("fallback", target),
		)
	} else {
		defer lock.Unlock()
	}

	if err := s.write(set, target); err != nil {
		return "", err
	}

	return target, nil
}

func (s *Store) write(set *ResultSet, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]any, len(columns))
	for i, name := range columns {
		header[i] = name
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range set.Rows {
		values := row.values()
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := applyStyles(f, set); err != nil {
		s.logger.Warn("workbook styling failed", zap.Error(err))
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %q: %w", path, err)
	}

	return nil
}

func fallbackPath(path string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return fmt.Sprintf("%s_%s%s", base, time.Now().Format("2006-01-02"), ext)
}
