package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"record-linkage/internal/config"
	"record-linkage/internal/fileio"
	"record-linkage/internal/linkage/blocking"
	"record-linkage/internal/linkage/model"
	"record-linkage/internal/linkage/scoring"
	"record-linkage/internal/linkage/training"
)

func testConfig(t *testing.T, withModel bool) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Config{
		SettingsFile: filepath.Join(dir, "settings"),
		TrainingFile: filepath.Join(dir, "training.json"),
		Threshold:    0.5,
		Mode:         string(model.ModeOneToOne),
		SampleSize:   100,
		Workers:      2,
		Seed:         1,
		Complete:     true,
	}
	if withModel {
		m, err := scoring.Restore(model.DefaultFields(), []float64{12}, -6)
		require.NoError(t, err)
		require.NoError(t, training.SaveSettings(cfg.SettingsFile, &training.Settings{
			Model: m,
			Rules: blocking.DefaultRules(model.DefaultFields()),
		}))
	}
	return cfg
}

func form(t *testing.T, values map[string]string, files map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range values {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, content := range files {
		fw, err := mw.CreateFormFile(field, field+".csv")
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/link", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

var (
	csvA = "sss\nACME Corp.\n"
	csvB = "rid,sss\n1,Acme Corporation\n2,Unrelated LLC\n"
)

func TestLink_JSON(t *testing.T) {
	h := Link(testConfig(t, true), model.DefaultFields(), zerolog.Nop())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, form(t, nil, map[string]string{"fileA": csvA, "fileB": csvB}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		Clusters []model.Cluster `json:"clusters"`
		Matches  int             `json:"matches"`
		Trained  bool            `json:"trained"`
		Rows     [][]string      `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.False(t, out.Trained)
	assert.Equal(t, 1, out.Matches)
	require.Len(t, out.Clusters, 1)
	assert.Equal(t, []model.RecordRef{
		{Source: model.SourceA, ID: "fileA.csv0"},
		{Source: model.SourceB, ID: "fileB.csv0"},
	}, out.Clusters[0].Members)

	require.Len(t, out.Rows, 4)
	assert.Equal(t, []string{"cluster_id", "link_score", "source_file", "rid", "sss"}, out.Rows[0])
	assert.Equal(t, "fileB.csv", out.Rows[1][2])
	assert.Equal(t, []string{"1", "", "fileB.csv", "2", "Unrelated LLC"}, out.Rows[2])
	assert.Equal(t, "fileA.csv", out.Rows[3][2])
}

func TestLink_CSV(t *testing.T) {
	h := Link(testConfig(t, true), model.DefaultFields(), zerolog.Nop())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, form(t, map[string]string{"format": "csv", "complete": "false"},
		map[string]string{"fileA": csvA, "fileB": csvB}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, ",,fileB.csv,2,Unrelated LLC", lines[2])
}

func TestLink_Errors(t *testing.T) {
	cases := []struct {
		name   string
		model  bool
		values map[string]string
		files  map[string]string
		status int
	}{
		{"no model", false, nil, map[string]string{"fileA": csvA, "fileB": csvB}, http.StatusConflict},
		{"bad mode", true, map[string]string{"mode": "cartesian"}, map[string]string{"fileA": csvA, "fileB": csvB}, http.StatusBadRequest},
		{"bad threshold", true, map[string]string{"threshold": "2"}, map[string]string{"fileA": csvA, "fileB": csvB}, http.StatusBadRequest},
		{"missing B", true, nil, map[string]string{"fileA": csvA}, http.StatusBadRequest},
		{"missing column", true, nil, map[string]string{"fileA": "name\nx\n", "fileB": csvB}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := Link(testConfig(t, tc.model), model.DefaultFields(), zerolog.Nop())
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, form(t, tc.values, tc.files))
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestLink_DedupeSingleFile(t *testing.T) {
	h := Link(testConfig(t, true), model.DefaultFields(), zerolog.Nop())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, form(t, map[string]string{"mode": "dedupe"},
		map[string]string{"fileA": "sss\nAcme Corp\nacme corp.\nZeta\n"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		Clusters []model.Cluster `json:"clusters"`
		Rows     [][]string      `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Clusters, 1)
	assert.Len(t, out.Clusters[0].Members, 2)
	require.Len(t, out.Rows, 4)
	assert.Equal(t, out.Rows[1][0], out.Rows[2][0])
	assert.NotEqual(t, out.Rows[1][0], out.Rows[3][0])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, StatusFor(model.NewError(model.ErrNoModel, "score", "", nil)))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(model.NewError(model.ErrPersistedStateCorrupt, "load", "x", nil)))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("disk")))
}

func TestLink_XLSX(t *testing.T) {
	h := Link(testConfig(t, true), model.DefaultFields(), zerolog.Nop())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, form(t, map[string]string{"format": "xlsx"},
		map[string]string{"fileA": csvA, "fileB": csvB}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	tab, err := fileio.ReadTable(rec.Body, "linked.xlsx", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"cluster_id", "link_score", "source_file", "rid", "sss"}, tab.Header)
	require.Len(t, tab.Rows, 3)
	assert.Equal(t, "Unrelated LLC", tab.Rows[1]["sss"])
	assert.Equal(t, "1", tab.Rows[1]["cluster_id"])
}
