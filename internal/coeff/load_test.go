package coeff

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const datasetJSON = `{
	"version": "2024-06",
	"effects": ["Monedas", "Provisiones"],
	"items": ["Espora", "Escarabanuez", "Iris"],
	"b": [[0.5, 1, -1], [2, 0, 0.25]],
	"v": [[1, 2, 3], [-1, 0, 4]]
}`

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	bPath := writeFile(t, "B_values.csv", []byte("i1,i2,i3\n1,2,3\n4,5,6\n"))
	vPath := writeFile(t, "V_values.csv", []byte("i1,i2,i3\n0.5, -1, 2\n3,0,1e-2\n"))

	s, err := LoadCSV(bPath, vPath)
	require.NoError(t, err)

	r, c := s.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, 5.0, s.B().At(1, 1))
	assert.Equal(t, -1.0, s.V().At(0, 1))
	assert.InDelta(t, 0.01, s.V().At(1, 2), 1e-15)
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr error
	}{
		{"header only", "a,b\n", ErrEmptyMatrix},
		{"ragged", "a,b\n1,2\n3\n", ErrBadDataset},
		{"not a number", "a,b\n1,x\n", ErrBadDataset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseJSON(t *testing.T) {
	s, err := ParseJSON([]byte(datasetJSON))
	require.NoError(t, err)

	assert.Equal(t, "2024-06", s.Version())
	assert.Equal(t, "Provisiones", s.EffectName(1))
	assert.Equal(t, "Iris", s.ItemName(2))
	assert.Equal(t, 0.25, s.B().At(1, 2))
	assert.Equal(t, 4.0, s.V().At(1, 2))
}

func TestParseJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"invalid", `{"b":`},
		{"missing v", `{"b": [[1]]}`},
		{"ragged", `{"b": [[1, 2], [3]], "v": [[1, 2], [3, 4]]}`},
		{"string cell", `{"b": [["1"]], "v": [[1]]}`},
		{"empty", `{"b": [], "v": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tt.in))
			assert.Error(t, err)
		})
	}
}

func compressed(t *testing.T, data []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

func TestOpen(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		s, err := Open(writeFile(t, "coeff.json", []byte(datasetJSON)))
		require.NoError(t, err)
		assert.Equal(t, "2024-06", s.Version())
	})

	t.Run("zstd", func(t *testing.T) {
		s, err := Open(writeFile(t, "coeff.json.zst", compressed(t, []byte(datasetJSON))))
		require.NoError(t, err)
		_, items := s.Dims()
		assert.Equal(t, 3, items)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "nope.json"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := Open(writeFile(t, "coeff.bin", []byte{0x01, 0x02}))
		assert.ErrorIs(t, err, ErrBadDataset)
	})
}

type fakeS3 struct {
	objects map[string][]byte
	input   *s3.GetObjectInput
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.input = in
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{
		Body:      io.NopCloser(bytes.NewReader(data)),
		VersionId: aws.String("s3-version-7"),
	}, nil
}

func TestLoadS3(t *testing.T) {
	noVersion := `{"b": [[1, 2]], "v": [[3, 4]]}`
	api := &fakeS3{objects: map[string][]byte{
		"data/coeff.json":     []byte(datasetJSON),
		"data/coeff.json.zst": compressed(t, []byte(noVersion)),
	}}
	ctx := context.Background()

	s, err := LoadS3(ctx, api, "bucket", "data/coeff.json", "abc")
	require.NoError(t, err)
	assert.Equal(t, "2024-06", s.Version())
	assert.Equal(t, "abc", aws.ToString(api.input.VersionId))
	assert.Equal(t, "bucket", aws.ToString(api.input.Bucket))

	s, err = LoadS3(ctx, api, "bucket", "data/coeff.json.zst", "")
	require.NoError(t, err)
	assert.Equal(t, "s3-version-7", s.Version())
	assert.Nil(t, api.input.VersionId)

	_, err = LoadS3(ctx, api, "bucket", "missing.json", "")
	assert.Error(t, err)
}
