package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"record-linkage/internal/linkage/model"
	"record-linkage/internal/linkage/service"
	"record-linkage/internal/linkage/training"
	"record-linkage/internal/source/postgres"
)

type Config struct {
	Host         string   `validate:"required"`
	Port         int      `validate:"min=1,max=65535"`
	AllowOrigins []string `validate:"min=1"`
	LogLevel     string
	LogFile      string
	MaxUploadMB  int `validate:"gt=0"`

	SettingsFile string  `validate:"required"`
	TrainingFile string  `validate:"required"`
	FieldsFile   string  `validate:"omitempty,file"`
	Threshold    float64 `validate:"gte=0,lte=1"`
	Mode         string  `validate:"oneof=one-to-one many-to-one dedupe"`
	SampleSize   int     `validate:"gt=0"`
	Workers      int     `validate:"gt=0"`
	Seed         uint64
	Complete     bool

	DB DB
}

// DB: параметры подключения для link-db.
type DB struct {
	Host     string
	Port     int `validate:"min=1,max=65535"`
	Name     string
	User     string
	Password string
	SSLMode  string `validate:"oneof=disable allow prefer require verify-ca verify-full"`
}

func (d DB) DSN() string {
	return postgres.DSN(d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode)
}

var validate = validator.New()

// Load читает .env (если есть) и переменные окружения.
func Load() (Config, error) {
	_ = godotenv.Load()

	var p parser
	cfg := Config{
		Host:         getenv("HOST", "127.0.0.1"),
		Port:         p.int("PORT", 8082),
		AllowOrigins: strings.Split(getenv("ALLOW_ORIGINS", "*"), ","),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		LogFile:      getenv("LOG_FILE", "logs/record-linkage.log"),
		MaxUploadMB:  p.int("MAX_UPLOAD_MB", 256),

		SettingsFile: getenv("SETTINGS_FILE", "data_matching_learned_settings"),
		TrainingFile: getenv("TRAINING_FILE", "data_matching_training.json"),
		FieldsFile:   os.Getenv("FIELDS_FILE"),
		Threshold:    p.float("LINK_THRESHOLD", 0),
		Mode:         strings.ToLower(getenv("LINK_MODE", string(model.ModeOneToOne))),
		SampleSize:   p.int("SAMPLE_SIZE", 15000),
		Workers:      p.int("WORKERS", runtime.NumCPU()),
		Seed:         p.uint("SEED", 1),
		Complete:     p.bool("COMPLETE_OUTPUT", true),

		DB: DB{
			Host:     getenv("DB_HOST", "localhost"),
			Port:     p.int("DB_PORT", 5432),
			Name:     getenv("DB_NAME", "postgres"),
			User:     getenv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			SSLMode:  getenv("DB_SSLMODE", "disable"),
		},
	}
	if p.err != nil {
		return cfg, model.NewError(model.ErrConfiguration, "config", "", p.err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate проверяет теги validate; ошибка всегда ErrConfiguration.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return model.NewError(model.ErrConfiguration, "config", "", err)
	}
	return nil
}

func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// Linker собирает конфиг пайплайна.
func (c Config) Linker() service.Config {
	return service.Config{
		Mode:      model.Mode(c.Mode),
		Threshold: c.Threshold,
		Complete:  c.Complete,
		Workers:   c.Workers,
		Training: training.Config{
			SettingsPath: c.SettingsFile,
			TrainingPath: c.TrainingFile,
			SampleSize:   c.SampleSize,
			Seed:         c.Seed,
			Workers:      c.Workers,
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// parser запоминает первую ошибку разбора, чтобы не проверять каждую переменную.
type parser struct{ err error }

func (p *parser) fail(k, v string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%s=%q: %w", k, v, err)
	}
}

func (p *parser) int(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		p.fail(k, v, err)
		return def
	}
	return n
}

func (p *parser) uint(k string, def uint64) uint64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	if err != nil {
		p.fail(k, v, err)
		return def
	}
	return n
}

func (p *parser) float(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		p.fail(k, v, err)
		return def
	}
	return f
}

func (p *parser) bool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		p.fail(k, v, err)
		return def
	}
	return b
}
