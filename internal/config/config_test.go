package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"record-linkage/internal/linkage/model"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env here
	t.Setenv("WORKERS", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8082", cfg.Addr())
	assert.Equal(t, "data_matching_learned_settings", cfg.SettingsFile)
	assert.Equal(t, "data_matching_training.json", cfg.TrainingFile)
	assert.Equal(t, "one-to-one", cfg.Mode)
	assert.Equal(t, 15000, cfg.SampleSize)
	assert.Equal(t, uint64(1), cfg.Seed)
	assert.True(t, cfg.Complete)
	assert.Zero(t, cfg.Threshold)

	lc := cfg.Linker()
	assert.Equal(t, model.ModeOneToOne, lc.Mode)
	assert.Equal(t, 3, lc.Training.Workers)
	assert.Equal(t, cfg.SettingsFile, lc.Training.SettingsPath)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LINK_MODE=dedupe\nLINK_THRESHOLD=0.5\n"), 0o644))
	t.Setenv("LINK_MODE", "")
	t.Setenv("LINK_THRESHOLD", "")
	os.Unsetenv("LINK_MODE")
	os.Unsetenv("LINK_THRESHOLD")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dedupe", cfg.Mode)
	assert.Equal(t, 0.5, cfg.Threshold)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string][2]string{
		"bad int":         {"PORT", "eighty"},
		"port range":      {"PORT", "70000"},
		"threshold range": {"LINK_THRESHOLD", "1.5"},
		"mode":            {"LINK_MODE", "cartesian"},
		"bool":            {"COMPLETE_OUTPUT", "maybe"},
		"sslmode":         {"DB_SSLMODE", "sometimes"},
		"fields file":     {"FIELDS_FILE", "/nonexistent/fields.yaml"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.ErrorIs(t, err, model.ErrConfiguration)
		})
	}
}

func TestDB_DSN(t *testing.T) {
	d := DB{Host: "db", Port: 5432, Name: "blue", User: "app", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 dbname=blue user=app password='' sslmode=disable", d.DSN())
}

func TestParseFields(t *testing.T) {
	fields, err := ParseFields([]byte(`
- field: sss
  column: supplier_name|Наименование
  type: String
  has_missing: true
  strip: ""
- field: price
  type: Price
`), "fields.yaml")
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "supplier_name|Наименование", fields[0].SourceColumn())
	assert.True(t, fields[0].HasMissing)
	assert.Equal(t, "", fields[0].StripChars())
	assert.Equal(t, model.DefaultSplit, fields[0].SplitChars())
	assert.Equal(t, model.KindPrice, fields[1].Kind)

	_, err = ParseFields([]byte("- field: sss\n  type: Soundex\n"), "fields.yaml")
	assert.ErrorIs(t, err, model.ErrConfiguration)

	_, err = ParseFields([]byte("- field: sss\n  type: String\n  weight: 2\n"), "fields.yaml")
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestLoadFields_Default(t *testing.T) {
	fields, err := LoadFields("")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultFields(), fields)
}

func TestLevel(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, Level("warn", 0))
	assert.Equal(t, zerolog.InfoLevel, Level("warn", 1))
	assert.Equal(t, zerolog.DebugLevel, Level("warn", 3))
	assert.Equal(t, zerolog.InfoLevel, Level("nonsense", 0))
}

func TestSetupLogger_CreatesLogDir(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{LogLevel: "debug", LogFile: filepath.Join(dir, "logs", "x.log")}
	l := SetupLogger(cfg, 0, io.Discard)
	l.Info().Msg("hello")
	assert.DirExists(t, filepath.Join(dir, "logs"))
}
