package connectors

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go-psa/internal/models"

	"github.com/xuri/excelize/v2"
)

// FileConnector serves the CSV, Excel and JSON kinds. The whole file is
// read into memory on every call; this bounds practical source size in
// the ten-thousands-of-rows range, which is acceptable for human-initiated
// imports.
type FileConnector struct {
	cfg *models.ConnectionConfig
}

func newFileConnector(cfg *models.ConnectionConfig) *FileConnector {
	return &FileConnector{cfg: cfg}
}

func (c *FileConnector) Kind() models.SourceKind {
	return c.cfg.Kind
}

// tableName derives the single virtual table name from the file name.
func (c *FileConnector) tableName() string {
	base := filepath.Base(c.cfg.File.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (c *FileConnector) TestConnection(ctx context.Context) *TestResult {
	start := time.Now()

	headers, rows, err := c.load()
	if err != nil {
		return &TestResult{Success: false, Message: err.Error(), ConnectionTime: time.Since(start)}
	}

	table := inferTable(c.tableName(), headers, rows)
	return &TestResult{
		Success:        true,
		Message:        fmt.Sprintf("parsed %s file, %d records", c.cfg.Kind, len(rows)),
		ConnectionTime: time.Since(start),
		Schema:         &models.SourceSchema{Tables: []models.SourceTable{table}},
		RecordCount:    int64(len(rows)),
	}
}

func (c *FileConnector) Schema(ctx context.Context) (*models.SourceSchema, error) {
	headers, rows, err := c.load()
	if err != nil {
		return nil, err
	}
	table := inferTable(c.tableName(), headers, rows)
	return &models.SourceSchema{Tables: []models.SourceTable{table}}, nil
}

func (c *FileConnector) FetchAll(ctx context.Context, table string) ([]map[string]interface{}, error) {
	_, rows, err := c.load()
	return rows, err
}

func (c *FileConnector) TablePreview(ctx context.Context, table string, limit int) ([]map[string]interface{}, error) {
	if limit <= 0 {
		limit = 10
	}
	_, rows, err := c.load()
	if err != nil {
		return nil, err
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (c *FileConnector) Query(ctx context.Context, query string, args ...interface{}) ([]map[string]interface{}, error) {
	return nil, fmt.Errorf("%s sources do not support queries", c.cfg.Kind)
}

func (c *FileConnector) load() ([]string, []map[string]interface{}, error) {
	switch c.cfg.Kind {
	case models.SourceCSV:
		return c.loadCSV()
	case models.SourceExcel:
		return c.loadExcel()
	case models.SourceJSON:
		return c.loadJSON()
	}
	return nil, nil, fmt.Errorf("not a file kind: %q", c.cfg.Kind)
}

func (c *FileConnector) loadCSV() ([]string, []map[string]interface{}, error) {
	file, err := os.Open(c.cfg.File.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.LazyQuotes = true
	if c.cfg.File.Delimiter != "" {
		reader.Comma = []rune(c.cfg.File.Delimiter)[0]
	}

	var headers []string
	if c.cfg.File.HasHeaders {
		headers, err = reader.Read()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read CSV headers: %w", err)
		}
	}

	var rows []map[string]interface{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		if headers == nil {
			headers = make([]string, len(record))
			for i := range record {
				headers[i] = fmt.Sprintf("column_%d", i+1)
			}
		}

		row := make(map[string]interface{})
		for i, value := range record {
			if i < len(headers) {
				row[headers[i]] = value
			}
		}
		rows = append(rows, row)
	}

	return headers, rows, nil
}

func (c *FileConnector) loadExcel() ([]string, []map[string]interface{}, error) {
	f, err := excelize.OpenFile(c.cfg.File.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := c.cfg.File.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil, fmt.Errorf("no sheets found in Excel file")
		}
		sheet = sheets[0]
	}

	all, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("Excel sheet is empty")
	}

	var headers []string
	start := 0
	if c.cfg.File.HasHeaders {
		headers = all[0]
		start = 1
	} else {
		headers = make([]string, len(all[0]))
		for i := range all[0] {
			headers[i] = fmt.Sprintf("column_%d", i+1)
		}
	}

	var rows []map[string]interface{}
	for i := start; i < len(all); i++ {
		row := make(map[string]interface{})
		for j, cell := range all[i] {
			if j < len(headers) {
				row[headers[j]] = cell
			}
		}
		rows = append(rows, row)
	}

	return headers, rows, nil
}

func (c *FileConnector) loadJSON() ([]string, []map[string]interface{}, error) {
	data, err := os.ReadFile(c.cfg.File.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}

	rows, err := decodeRecordArray(data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse JSON file: %w", err)
	}
	return nil, rows, nil
}

// decodeRecordArray accepts a bare array of objects or one of the common
// envelope shapes (.data, .items, .results) around one.
func decodeRecordArray(data []byte) ([]map[string]interface{}, error) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	arr, ok := raw.([]interface{})
	if !ok {
		obj, isObj := raw.(map[string]interface{})
		if !isObj {
			return nil, fmt.Errorf("expected an array of objects or an envelope")
		}
		for _, key := range []string{"data", "items", "results"} {
			if inner, found := obj[key].([]interface{}); found {
				arr = inner
				ok = true
				break
			}
		}
		if !ok {
			return nil, fmt.Errorf("no record array found under data, items or results")
		}
	}

	rows := make([]map[string]interface{}, 0, len(arr))
	for i, item := range arr {
		obj, isObj := item.(map[string]interface{})
		if !isObj {
			return nil, fmt.Errorf("element %d is not an object", i)
		}
		rows = append(rows, obj)
	}
	return rows, nil
}
