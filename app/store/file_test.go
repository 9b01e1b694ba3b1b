package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/jobtrack/app/jobs"
)

func TestFile_LoadMissingCreatesEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	f := NewFile(path, JSON{})

	records, err := f.Load()
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestFile_SaveLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	f := NewFile(path, nil)

	recs := []jobs.Record{
		{ID: "1", JobRole: "dev", Status: "applied", Summary: "s1", Source: "pasted"},
		{ID: "2", JobRole: "ops", Status: "rejected", Summary: "multi\nline", Source: "https://example.com/j/2"},
	}
	require.NoError(t, f.Save(recs))

	res, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, recs, res)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  {\n    \"id\": \"1\",\n    \"job_role\": \"dev\",")
}

func TestFile_SaveEmptyIsArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	f := NewFile(path, JSON{})
	require.NoError(t, f.Save(nil))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	path = filepath.Join(t.TempDir(), "jobs.yml")
	f = NewFile(path, YAML{})
	require.NoError(t, f.Save(nil))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestFile_SaveLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.yml")
	f := NewFile(path, YAML{})

	recs := []jobs.Record{{ID: "1", JobRole: "dev", Status: "applied", Summary: "s1", Source: "pasted"}}
	require.NoError(t, f.Save(recs))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "job_role: dev")

	res, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, recs, res)
}

func TestFile_Malformed(t *testing.T) {
	tbl := []struct {
		name  string
		codec Codec
		body  string
	}{
		{"json garbage", JSON{}, "{not json"},
		{"json object", JSON{}, `{"id":"1"}`},
		{"json empty file", JSON{}, ""},
		{"yaml mapping", YAML{}, "id: 1\njob_role: dev\n"},
	}
	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "jobs")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o600))

			_, err := NewFile(path, tt.codec).Load()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
			assert.Contains(t, err.Error(), path)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.body, string(data), "malformed file left untouched")
		})
	}
}

func TestFile_NullIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	require.NoError(t, os.WriteFile(path, []byte("null"), 0o600))
	res, err := NewFile(path, JSON{}).Load()
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, res)
}

func TestFile_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	f := NewFile(filepath.Join(dir, "jobs.json"), JSON{})
	for i := 0; i < 5; i++ {
		require.NoError(t, f.Save([]jobs.Record{{ID: "x"}}))
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "jobs.json", entries[0].Name())

	info, err := os.Stat(filepath.Join(dir, "jobs.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestFile_SaveFailsOnMissingDir(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "no-such-dir", "jobs.json"), JSON{})
	err := f.Save([]jobs.Record{{ID: "1"}})
	require.Error(t, err)
	_, err = f.Load()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformed)
}

func TestFile_WithService(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	svc := jobs.NewService(NewFile(path, JSON{}), jobs.Config{})

	rec, err := svc.Create(context.Background(), jobs.NewRecord{JobRole: "Backend Engineer", Summary: "Go", Source: "pasted"})
	require.NoError(t, err)

	// a fresh store over the same file sees the same collection
	list, err := jobs.NewService(NewFile(path, JSON{}), jobs.Config{}).List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, rec, list[0])
}

func TestCodecFor(t *testing.T) {
	c, err := CodecFor("json")
	require.NoError(t, err)
	assert.IsType(t, JSON{}, c)

	c, err = CodecFor("YAML")
	require.NoError(t, err)
	assert.IsType(t, YAML{}, c)

	_, err = CodecFor("xml")
	assert.Error(t, err)
}
