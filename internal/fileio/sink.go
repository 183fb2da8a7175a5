package fileio

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	excelize "github.com/xuri/excelize/v2"

	"record-linkage/internal/linkage/model"
)

// Sheet is one input table and the source its records were loaded as.
type Sheet struct {
	Table  *Table
	Source model.Source
}

var leadColumns = []string{"cluster_id", "link_score", "source_file"}

// Rows lays out the linkage result: every input row in file order, sheets in
// the order given, prefixed with its cluster id, score and file name. The
// columns are the union of the sheets' headers in first-seen order. Rows
// without an assignment keep the first two cells empty.
func Rows(sheets []Sheet, assignments []model.Assignment) [][]string {
	byRef := make(map[model.RecordRef]model.Assignment, len(assignments))
	for _, a := range assignments {
		byRef[a.Ref] = a
	}

	var cols []string
	seen := make(map[string]bool)
	for _, s := range sheets {
		for _, h := range s.Table.Header {
			if !seen[h] {
				seen[h] = true
				cols = append(cols, h)
			}
		}
	}

	out := [][]string{append(append([]string{}, leadColumns...), cols...)}
	for _, s := range sheets {
		for i, row := range s.Table.Rows {
			line := make([]string, 0, len(leadColumns)+len(cols))
			if a, ok := byRef[model.RecordRef{Source: s.Source, ID: RecordID(s.Table, i)}]; ok {
				score := ""
				if a.Score != nil {
					score = strconv.FormatFloat(*a.Score, 'f', -1, 64)
				}
				line = append(line, strconv.Itoa(a.ClusterID), score)
			} else {
				line = append(line, "", "")
			}
			line = append(line, s.Table.Name)
			for _, c := range cols {
				line = append(line, row[c])
			}
			out = append(out, line)
		}
	}
	return out
}

func WriteCSV(w io.Writer, sheets []Sheet, assignments []model.Assignment) error {
	return WriteCSVRows(w, Rows(sheets, assignments))
}

func WriteCSVRows(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteXLSX пишет тот же набор строк в первый лист книги.
func WriteXLSX(w io.Writer, sheets []Sheet, assignments []model.Assignment) error {
	return WriteXLSXRows(w, Rows(sheets, assignments))
}

func WriteXLSXRows(w io.Writer, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	for i, line := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		vals := make([]any, len(line))
		for j, v := range line {
			vals[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", i+1, err)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// ClusterRows is the side-by-side layout: one line per cluster id in
// ascending order with the link score and, for each sheet, the value of
// column (resolved per sheet like field columns). Several members of one
// sheet are joined with "; ".
func ClusterRows(sheets []Sheet, assignments []model.Assignment, column string) [][]string {
	type line struct {
		score  string
		values [][]string
	}
	byID := make(map[int]*line)
	var ids []int

	cols := make([]string, len(sheets))
	index := make(map[model.RecordRef]int, len(assignments))
	for i, a := range assignments {
		index[a.Ref] = i
	}
	for si, s := range sheets {
		cols[si] = resolveColumn(s.Table.Header, column)
		for i, row := range s.Table.Rows {
			ai, ok := index[model.RecordRef{Source: s.Source, ID: RecordID(s.Table, i)}]
			if !ok {
				continue
			}
			a := assignments[ai]
			l := byID[a.ClusterID]
			if l == nil {
				l = &line{values: make([][]string, len(sheets))}
				if a.Score != nil {
					l.score = strconv.FormatFloat(*a.Score, 'f', -1, 64)
				}
				byID[a.ClusterID] = l
				ids = append(ids, a.ClusterID)
			}
			l.values[si] = append(l.values[si], row[cols[si]])
		}
	}
	slices.Sort(ids)

	header := []string{"cluster_id", "link_score"}
	for _, s := range sheets {
		header = append(header, s.Table.Name)
	}
	out := [][]string{header}
	for _, id := range ids {
		l := byID[id]
		rec := []string{strconv.Itoa(id), l.score}
		for _, v := range l.values {
			rec = append(rec, strings.Join(v, "; "))
		}
		out = append(out, rec)
	}
	return out
}
