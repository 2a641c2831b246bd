package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCache(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "geocache.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const sample = `{
    "Velodrom": {"lat": 52.5306, "lon": 13.4491},
    "Nowhere 123": null
}`

func TestRun_List(t *testing.T) {
	path := writeCache(t, sample)
	var out, errOut bytes.Buffer

	code := run([]string{"-file", path, "-list"}, &out, &errOut)

	assert.Equal(t, 0, code)
	assert.Equal(t, "negative\tNowhere 123\n52.530600,13.449100\tVelodrom\n2 entries\n", out.String())
}

func TestRun_Get(t *testing.T) {
	path := writeCache(t, sample)

	tests := []struct {
		query string
		want  string
	}{
		{query: "Velodrom", want: "52.530600,13.449100\n"},
		{query: "Nowhere 123", want: "negative\n"},
		{query: "velodrom", want: "miss\n"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var out, errOut bytes.Buffer
			code := run([]string{"-file", path, "-get", tt.query}, &out, &errOut)
			assert.Equal(t, 0, code)
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestRun_ForgetPersists(t *testing.T) {
	path := writeCache(t, sample)
	var out, errOut bytes.Buffer

	code := run([]string{"-file", path, "-forget", "Nowhere 123"}, &out, &errOut)
	require.Equal(t, 0, code)
	assert.Contains(t, out.String(), "forgot")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Nowhere 123")
	assert.Contains(t, string(data), "Velodrom")

	out.Reset()
	code = run([]string{"-file", path, "-forget", "Nowhere 123"}, &out, &errOut)
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "no entry")
}

func TestRun_Resolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat": "52.5186", "lon": "13.4083"}]`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "geocache.json")
	var out, errOut bytes.Buffer

	code := run([]string{"-file", path, "-url", srv.URL, "-resolve", "Alexanderplatz"}, &out, &errOut)

	require.Equal(t, 0, code, errOut.String())
	assert.Equal(t, "52.518600,13.408300\n", out.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Alexanderplatz"`)
}

func TestRun_NoAction(t *testing.T) {
	var out, errOut bytes.Buffer

	code := run([]string{"-file", filepath.Join(t.TempDir(), "x.json")}, &out, &errOut)

	assert.Equal(t, 2, code)
}
