package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/itohio/tracedown/pkg/series"
)

// ErrEmptyInput is returned when a CSV stream has no header row.
var ErrEmptyInput = errors.New("empty input")

// LoadCSV reads a two-column "index,value" CSV with a header row.
// An index that parses as RFC3339 makes a timestamp series, otherwise the
// index must be numeric. An empty or NaN value becomes a null sample.
func LoadCSV(r io.Reader, name string) (series.Series[float64], error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return series.Series[float64]{}, ErrEmptyInput
		}
		return series.Series[float64]{}, fmt.Errorf("failed to read header: %w", err)
	}

	s := series.Series[float64]{Name: name, IndexName: header[0], Kind: series.Numeric}
	if s.Name == "" {
		s.Name = header[1]
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return series.Series[float64]{}, fmt.Errorf("line %d: %w", line, err)
		}

		var smp series.Sample[float64]
		if line == 2 {
			if _, err := time.Parse(time.RFC3339Nano, rec[0]); err == nil {
				s.Kind = series.Timestamp
			}
		}
		if smp.Index, err = parseIndex(s.Kind, rec[0]); err != nil {
			return series.Series[float64]{}, fmt.Errorf("line %d: %w", line, err)
		}
		if smp.Value, smp.Null, err = parseValue(rec[1]); err != nil {
			return series.Series[float64]{}, fmt.Errorf("line %d: %w", line, err)
		}
		s.Samples = append(s.Samples, smp)
	}

	return s, nil
}

// WriteCSV writes s in the format LoadCSV reads. Null samples get an empty value cell.
func WriteCSV[V any](w io.Writer, s series.Series[V]) error {
	cw := csv.NewWriter(w)

	indexName := s.IndexName
	if indexName == "" {
		indexName = "index"
	}
	valueName := s.Name
	if valueName == "" {
		valueName = "value"
	}
	if err := cw.Write([]string{indexName, valueName}); err != nil {
		return err
	}

	for _, smp := range s.Samples {
		var idx string
		if s.Kind == series.Timestamp {
			idx = smp.Index.T.Format(time.RFC3339Nano)
		} else {
			idx = strconv.FormatFloat(smp.Index.X, 'g', -1, 64)
		}
		val := ""
		if !smp.Null {
			val = fmt.Sprint(smp.Value)
		}
		if err := cw.Write([]string{idx, val}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func parseIndex(kind series.IndexKind, raw string) (series.Index, error) {
	raw = strings.TrimSpace(raw)
	if kind == series.Timestamp {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return series.Index{}, fmt.Errorf("invalid timestamp %q: %w", raw, err)
		}
		return series.Index{T: t}, nil
	}
	x, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return series.Index{}, fmt.Errorf("invalid index %q: %w", raw, err)
	}
	return series.Index{X: x}, nil
}

func parseValue(raw string) (float64, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid value %q: %w", raw, err)
	}
	if math.IsNaN(v) {
		return 0, true, nil
	}
	return v, false, nil
}
