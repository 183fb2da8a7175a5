package fileio

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"record-linkage/internal/linkage/model"
)

// RecordID is the id of the i-th data row of t: file name plus row index.
func RecordID(t *Table, i int) string { return t.Name + strconv.Itoa(i) }

// ToCollection turns t into a collection of src. Each configured field is
// read from its source column; the whole row is kept as Raw for the sinks.
// Empty cells stay in Fields and become null during preprocessing.
func ToCollection(t *Table, src model.Source, fields []model.FieldSpec) (*model.Collection, error) {
	cols := make(map[string]string, len(fields))
	for _, f := range fields {
		col := resolveColumn(t.Header, f.SourceColumn())
		if col == "" {
			return nil, model.NewError(model.ErrConfiguration, "source", t.Name,
				fmt.Errorf("column %q for field %q not found", f.SourceColumn(), f.Name))
		}
		cols[f.Name] = col
	}

	c := model.NewCollection(t.Name, src)
	for i, row := range t.Rows {
		r := model.Record{
			ID:     RecordID(t, i),
			Fields: make(map[string]string, len(fields)),
			Raw:    row,
		}
		for name, col := range cols {
			r.Fields[name] = row[col]
		}
		if err := c.Add(r); err != nil {
			return nil, err
		}
	}
	return c, nil
}

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// нормализуем имя колонки: нижний регистр, убираем служ.символы/множественные пробелы/ё→е
func normHeaderKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("\u00A0", " ", "\u202F", " ", "ё", "е").Replace(s)
	s = nonWord.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// ищем реальную колонку по желаемому имени.
// Поддерживает варианты через "|" (например: "supplier_name|Наименование").
// Порядок: точное совпадение, затем нормализованное, затем лучшее вхождение.
func resolveColumn(header []string, want string) string {
	var alts []string
	for _, a := range strings.Split(want, "|") {
		if a = strings.TrimSpace(a); a != "" {
			alts = append(alts, a)
		}
	}
	if len(alts) == 0 {
		return ""
	}

	for _, a := range alts {
		for _, h := range header {
			if h == a {
				return h
			}
		}
	}

	norm := make([]string, len(alts))
	for i, a := range alts {
		norm[i] = normHeaderKey(a)
	}
	best, bestScore := "", 0
	for _, h := range header {
		nh := normHeaderKey(h)
		if nh == "" {
			continue
		}
		score := 0
		for _, n := range norm {
			if nh == n {
				return h
			}
			// частичное: want ⊂ header или header ⊂ want
			if n != "" && (strings.Contains(nh, n) || strings.Contains(n, nh)) {
				score = max(score, len(n))
			}
		}
		if score > bestScore {
			best, bestScore = h, score
		}
	}
	return best
}
