// Package handler exposes linkage over HTTP with the persisted model.
package handler

import (
	"encoding/json"
	"errors"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"record-linkage/internal/config"
	"record-linkage/internal/fileio"
	"record-linkage/internal/linkage/model"
	"record-linkage/internal/linkage/service"
)

type response struct {
	*service.Result
	Rows [][]string `json:"rows"`
}

// Link возвращает http.HandlerFunc для r.Post("/link", ...).
// Форма: fileA, fileB (в dedupe необязателен), a_header_row, b_header_row,
// threshold, mode, complete, format=json|csv|xlsx.
// Обучения по HTTP нет, без файла настроек отвечаем 409.
func Link(cfg config.Config, fields []model.FieldSpec, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := zerolog.Ctx(r.Context())
		if log.GetLevel() == zerolog.Disabled {
			log = &logger
		}

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			writeError(w, http.StatusBadRequest, "bad multipart form: "+err.Error())
			return
		}
		defer r.MultipartForm.RemoveAll()

		lc := cfg.Linker()
		lc.Training.ReadOnly = true
		if v := r.FormValue("mode"); v != "" {
			lc.Mode = model.Mode(strings.ToLower(strings.TrimSpace(v)))
		}
		lc.Threshold = toFloat(r.FormValue("threshold"), lc.Threshold)
		lc.Complete = toBool(r.FormValue("complete"), lc.Complete)

		a, sheetA, err := readCollection(r, "fileA", "a_header_row", model.SourceA, fields)
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read A: "+err.Error())
			return
		}
		var (
			b      *model.Collection
			sheets []fileio.Sheet
		)
		if len(r.MultipartForm.File["fileB"]) > 0 || lc.Mode != model.ModeDedupe {
			var sheetB fileio.Sheet
			b, sheetB, err = readCollection(r, "fileB", "b_header_row", model.SourceB, fields)
			if err != nil {
				writeError(w, http.StatusBadRequest, "failed to read B: "+err.Error())
				return
			}
			sheets = append(sheets, sheetB)
		}
		sheets = append(sheets, sheetA)
		if lc.Mode == model.ModeDedupe {
			for i := range sheets {
				sheets[i].Source = model.SourceA
			}
		}

		linker, err := service.New(lc, fields, nil, *log)
		if err != nil {
			writeLinkError(w, err)
			return
		}
		res, err := linker.Run(r.Context(), a, b)
		if err != nil {
			log.Warn().Err(err).Msg("link failed")
			writeLinkError(w, err)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		switch strings.ToLower(r.FormValue("format")) {
		case "csv":
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			w.Header().Set("Content-Disposition", `attachment; filename="linked.csv"`)
			if err := fileio.WriteCSV(w, sheets, res.Assignments); err != nil {
				log.Error().Err(err).Msg("write csv")
			}
			return
		case "xlsx":
			w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
			w.Header().Set("Content-Disposition", `attachment; filename="linked.xlsx"`)
			if err := fileio.WriteXLSX(w, sheets, res.Assignments); err != nil {
				log.Error().Err(err).Msg("write xlsx")
			}
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(response{Result: res, Rows: fileio.Rows(sheets, res.Assignments)}); err != nil {
			log.Error().Err(err).Msg("write json")
		}
	}
}

func readCollection(r *http.Request, field, headerField string, src model.Source, fields []model.FieldSpec) (*model.Collection, fileio.Sheet, error) {
	f, hdr, err := r.FormFile(field)
	if err != nil {
		return nil, fileio.Sheet{}, err
	}
	defer f.Close()
	return load(f, hdr, atoi(r.FormValue(headerField), 1), src, fields)
}

func load(f multipart.File, hdr *multipart.FileHeader, headerRow int, src model.Source, fields []model.FieldSpec) (*model.Collection, fileio.Sheet, error) {
	t, err := fileio.ReadTable(f, hdr.Filename, headerRow)
	if err != nil {
		return nil, fileio.Sheet{}, err
	}
	c, err := fileio.ToCollection(t, src, fields)
	if err != nil {
		return nil, fileio.Sheet{}, err
	}
	return c, fileio.Sheet{Table: t, Source: src}, nil
}

// StatusFor переводит вид ошибки пайплайна в HTTP статус.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNoModel):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeLinkError(w http.ResponseWriter, err error) {
	writeError(w, StatusFor(err), err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func atoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func toBool(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func toFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}
