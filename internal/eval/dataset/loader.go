package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/skyscope/skyscope/internal/images"
)

// longest JSONL record accepted
const maxLineBytes = 1 << 20

// parquet rows read per batch
const batchSize = 128

// Loader reads a labelled sky-photo dataset from a .jsonl or .parquet file
type Loader struct {
	datasetPath string
}

func NewLoader(datasetPath string) *Loader {
	return &Loader{datasetPath: datasetPath}
}

// Load returns every record in the dataset
func (l *Loader) Load() ([]Record, error) {
	return l.LoadSample(-1)
}

// LoadSample returns at most limit records in file order. A negative limit
// loads everything. Image paths come back resolved against the dataset
// directory and records without an id are numbered.
func (l *Loader) LoadSample(limit int) ([]Record, error) {
	var read func(*os.File, int) ([]Record, error)
	switch ext := strings.ToLower(filepath.Ext(l.datasetPath)); ext {
	case ".parquet":
		read = readParquet
	case ".jsonl", ".json":
		read = readJSONL
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl)", ext)
	}

	file, err := os.Open(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", l.datasetPath, err)
	}
	defer file.Close()

	records, err := read(file, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.datasetPath, err)
	}

	for i := range records {
		r := &records[i]
		r.ImagePath = l.resolve(r.ImagePath)
		if r.ID == "" {
			r.ID = fmt.Sprintf("record-%d", i+1)
		}
	}
	slog.Debug("Dataset loaded", "path", l.datasetPath, "records", len(records), "limit", limit)
	return records, nil
}

// resolve makes image paths relative to the dataset file's directory. URLs are left alone.
func (l *Loader) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || images.IsURL(path) {
		return path
	}
	return filepath.Join(filepath.Dir(l.datasetPath), path)
}

func full(records []Record, limit int) bool {
	return limit >= 0 && len(records) >= limit
}

func readJSONL(file *os.File, limit int) ([]Record, error) {
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64<<10), maxLineBytes)

	var records []Record
	for line := 1; !full(records, limit) && scanner.Scan(); line++ {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var record Record
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return records, nil
}

func readParquet(file *os.File, limit int) ([]Record, error) {
	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[Record](pf)
	defer reader.Close()

	var records []Record
	for !full(records, limit) {
		// the reader reuses nested slices of the rows it fills
		batch := make([]Record, batchSize)
		n, err := reader.Read(batch)
		if limit >= 0 {
			n = min(n, limit-len(records))
		}
		records = append(records, batch[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	return records, nil
}
