package coeff

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/tidwall/gjson"
	"gonum.org/v1/gonum/mat"
)

// LoadCSV reads B and V from two comma separated files. The first row of
// each file is a header and is skipped.
func LoadCSV(bPath, vPath string) (*Store, error) {
	b, err := readCSVFile(bPath)
	if err != nil {
		return nil, err
	}
	v, err := readCSVFile(vPath)
	if err != nil {
		return nil, err
	}
	return New(b, v)
}

func readCSVFile(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer f.Close()
	m, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return m, nil
}

// ReadCSV decodes a header-prefixed CSV table of floats into a matrix.
func ReadCSV(r io.Reader) (*mat.Dense, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDataset, err)
	}
	if len(records) < 2 {
		return nil, ErrEmptyMatrix
	}
	rows := records[1:]
	cols := len(rows[0])
	if cols == 0 {
		return nil, ErrEmptyMatrix
	}
	data := make([]float64, 0, len(rows)*cols)
	for i, rec := range rows {
		if len(rec) != cols {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrBadDataset, i+1, len(rec), cols)
		}
		for j, field := range rec {
			x, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %d: %v", ErrBadDataset, i+1, j, err)
			}
			data = append(data, x)
		}
	}
	return mat.NewDense(len(rows), cols, data), nil
}

// ParseJSON decodes a dataset document of the form
//
//	{"version": "...", "effects": [...], "items": [...], "b": [[...]], "v": [[...]]}
//
// Only "b" and "v" are required.
func ParseJSON(data []byte) (*Store, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrBadDataset)
	}
	root := gjson.ParseBytes(data)

	b, err := readMatrix(root.Get("b"), "b")
	if err != nil {
		return nil, err
	}
	v, err := readMatrix(root.Get("v"), "v")
	if err != nil {
		return nil, err
	}

	var opts []Option
	if ver := root.Get("version"); ver.Exists() {
		opts = append(opts, WithVersion(ver.String()))
	}
	if names := readStrings(root.Get("effects")); names != nil {
		opts = append(opts, WithEffectNames(names))
	}
	if names := readStrings(root.Get("items")); names != nil {
		opts = append(opts, WithItemNames(names))
	}
	return New(b, v, opts...)
}

func readMatrix(r gjson.Result, name string) (*mat.Dense, error) {
	if !r.IsArray() {
		return nil, fmt.Errorf("%w: %q must be an array of rows", ErrBadDataset, name)
	}
	rows := r.Array()
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptyMatrix, name)
	}
	cols := len(rows[0].Array())
	if cols == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptyMatrix, name)
	}
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		vals := row.Array()
		if len(vals) != cols {
			return nil, fmt.Errorf("%w: %s row %d has %d values, want %d", ErrBadDataset, name, i, len(vals), cols)
		}
		for j, x := range vals {
			if x.Type != gjson.Number {
				return nil, fmt.Errorf("%w: %s[%d][%d] is not a number", ErrBadDataset, name, i, j)
			}
			data = append(data, x.Float())
		}
	}
	return mat.NewDense(len(rows), cols, data), nil
}

func readStrings(r gjson.Result) []string {
	if !r.IsArray() {
		return nil
	}
	var out []string
	r.ForEach(func(_, v gjson.Result) bool {
		out = append(out, v.String())
		return true
	})
	return out
}

// Open loads a JSON dataset from disk. Files ending in ".zst" are zstd
// decompressed first.
func Open(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	s, err := decode(path, raw)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return s, nil
}

// decode picks the decoder from the object name.
func decode(name string, raw []byte) (*Store, error) {
	if strings.HasSuffix(name, ".zst") {
		var err error
		raw, err = decompress(raw)
		if err != nil {
			return nil, err
		}
		name = strings.TrimSuffix(name, ".zst")
	}
	switch {
	case strings.HasSuffix(name, ".json"):
		return ParseJSON(raw)
	case strings.HasSuffix(name, ".csv"):
		return nil, fmt.Errorf("%w: csv datasets need separate B and V files", ErrBadDataset)
	}
	// Unknown extension: sniff for a JSON document.
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '{' {
		return ParseJSON(raw)
	}
	return nil, fmt.Errorf("%w: unsupported dataset %q", ErrBadDataset, name)
}

func decompress(raw []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	out, err := dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %v", ErrBadDataset, err)
	}
	return out, nil
}
