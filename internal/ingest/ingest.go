// Package ingest turns tabular student exports into records.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/placement-readiness/internal/logger"
	"github.com/spigell/placement-readiness/internal/student"
)

// ResumeFileColumn names a document whose text fills resume_text when that
// column is empty.
const ResumeFileColumn = "resume_file"

var ErrUnsupportedFormat = errors.New("unsupported input format")

// Reader decodes student rows. Missing optional columns get their defaults.
type Reader struct {
	Extractor Extractor
	// BaseDir resolves relative resume_file paths. ReadFile sets it to the
	// input's directory when empty.
	BaseDir string
	Logger  *zap.Logger
}

// ReadFile picks the decoder by extension: .csv, or .yaml/.yml/.json.
func (r Reader) ReadFile(path string) ([]student.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	if r.BaseDir == "" {
		r.BaseDir = filepath.Dir(path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return r.ReadCSV(f)
	case ".yaml", ".yml", ".json":
		return r.ReadYAML(f)
	default:
		return nil, fmt.Errorf("%q: %w", ext, ErrUnsupportedFormat)
	}
}

// ReadCSV reads a CSV export with a header row. Header names are matched
// case-insensitively and spaces count as underscores.
func (r Reader) ReadCSV(in io.Reader) ([]student.Record, error) {
	cr := csv.NewReader(in)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		header[i] = normalizeKey(h)
	}

	var recs []student.Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}

		fields := make(map[string]any, len(header))
		for i, value := range row {
			if i < len(header) {
				fields[header[i]] = value
			}
		}

		rec, err := r.decode(fields)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// ReadYAML reads a list of row objects. JSON arrays are accepted too.
func (r Reader) ReadYAML(in io.Reader) ([]student.Record, error) {
	var rows []map[string]any
	if err := yaml.NewDecoder(in).Decode(&rows); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode rows: %w", err)
	}

	recs := make([]student.Record, 0, len(rows))
	for i, row := range rows {
		fields := make(map[string]any, len(row))
		for k, v := range row {
			fields[normalizeKey(k)] = v
		}
		rec, err := r.decode(fields)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (r Reader) decode(fields map[string]any) (student.Record, error) {
	for k, v := range fields {
		if s, ok := v.(string); ok {
			s = strings.TrimSpace(s)
			if s == "" || strings.EqualFold(s, "nan") {
				delete(fields, k)
				continue
			}
			fields[k] = s
		}
		if v == nil {
			delete(fields, k)
		}
	}

	var rec student.Record
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &rec,
	})
	if err != nil {
		return student.Record{}, fmt.Errorf("create decoder: %w", err)
	}
	if err := decoder.Decode(fields); err != nil {
		return student.Record{}, err
	}

	_, hasSoftSkill := fields["softskill_score"]
	rec.ApplyDefaults(hasSoftSkill)

	if path, ok := fields[ResumeFileColumn].(string); ok && rec.ResumeText == "" {
		rec.ResumeText = r.resume(rec.Name, path)
	}
	return rec, nil
}

func (r Reader) resume(name, path string) string {
	if r.Extractor == nil {
		return ""
	}
	if !filepath.IsAbs(path) && r.BaseDir != "" {
		path = filepath.Join(r.BaseDir, path)
	}

	text, err := r.Extractor.Extract(path)
	if err != nil {
		logger.WithFields(r.Logger).Warn("resume extraction failed", logger.Student(name), zap.String("path", path), zap.Error(err))
		return ""
	}
	return text
}

func normalizeKey(key string) string {
	key = strings.TrimPrefix(key, "\ufeff")
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), " ", "_")
}
