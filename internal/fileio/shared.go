package fileio

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Table is one sheet of an input file: header cells in column order and
// the data rows keyed by header.
type Table struct {
	Name   string
	Header []string
	Rows   []map[string]string
}

// ReadTable выберет парсер по расширению и вернёт таблицу.
// headerRow: номер строки заголовков (1-based).
func ReadTable(r io.Reader, filename string, headerRow int) (*Table, error) {
	if headerRow < 1 {
		return nil, fmt.Errorf("header row must be 1-based, got %d", headerRow)
	}
	var (
		rows [][]string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".xlsx":
		rows, err = readXLSX(r)
	case ".xls":
		rows, err = readXLS(r)
	case ".csv", ".txt":
		rows, err = readCSV(r)
	default:
		return nil, fmt.Errorf("unsupported file: %s", filename)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	t := &Table{Name: filename}
	if len(rows) == 0 {
		return t, nil
	}
	t.Header = pickHeader(rows, headerRow)
	t.Rows = rowsToMaps(rows, t.Header, headerRow)
	return t, nil
}

// pickHeader: берёт строку заголовков и подставляет Column N для пустых.
// Повторяющиеся имена получают суффикс, иначе map затрёт значения.
func pickHeader(rows [][]string, headerRow int) []string {
	idx := headerRow - 1
	if idx >= len(rows) {
		idx = 0
	}
	h := rows[idx]
	out := make([]string, len(h))
	seen := make(map[string]int, len(h))
	for i, v := range h {
		v = normalizeCell(v)
		if v == "" {
			v = fmt.Sprintf("Column %d", i+1)
		}
		if n := seen[v]; n > 0 {
			base := v
			for ; seen[v] > 0; n++ {
				v = fmt.Sprintf("%s (%d)", base, n+1)
			}
			seen[base] = n
		}
		seen[v]++
		out[i] = v
	}
	return out
}

// rowsToMaps: конвертирует AoA в []map по заголовкам, пропуская полностью пустые строки.
func rowsToMaps(rows [][]string, headers []string, headerRow int) []map[string]string {
	var out []map[string]string
	for r := headerRow; r < len(rows); r++ { // первая строка после заголовков
		rec := rows[r]
		m := make(map[string]string, len(headers))
		empty := true
		for c, h := range headers {
			var v string
			if c < len(rec) {
				v = rec[c]
			}
			m[h] = v
			if strings.TrimSpace(v) != "" {
				empty = false
			}
		}
		if !empty {
			out = append(out, m)
		}
	}
	return out
}

// normalizeCell: обрезает пробелы (включая NBSP/NNBSP) и переводы строк по краям.
func normalizeCell(s string) string {
	s = strings.NewReplacer("\u00A0", " ", "\u202F", " ", "\r\n", "\n").Replace(s)
	return strings.TrimSpace(s)
}
