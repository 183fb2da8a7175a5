package fileio

import (
	"bytes"
	"errors"
	"io"

	xls "github.com/extrame/xls"
)

// scanCols bounds the column scan; Row.LastCol() is unreliable in old .xls.
const scanCols = 512

// xlsCharsets: в каком порядке пробуем кодировку строк книги.
var xlsCharsets = []string{"windows-1251", "utf-8", "koi8-r"}

func readXLS(r io.Reader) ([][]string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	wb, err := openWorkbook(b)
	if err != nil {
		return nil, err
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, nil
	}
	return sheetRows(sheet), nil
}

func openWorkbook(b []byte) (*xls.WorkBook, error) {
	errs := make([]error, 0, len(xlsCharsets))
	for _, ch := range xlsCharsets {
		wb, err := xls.OpenReader(bytes.NewReader(b), ch)
		if err == nil && wb != nil {
			return wb, nil
		}
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return nil, errors.New("xls: failed to open workbook")
}

// sheetRows читает лист прямоугольником: ширина = последняя непустая колонка
// по всем строкам, хвост из пустых строк отбрасывается.
func sheetRows(sheet *xls.WorkSheet) [][]string {
	last := int(sheet.MaxRow)
	width := 0
	for i := 0; i <= last; i++ {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		for j := scanCols - 1; j >= width; j-- {
			if normalizeCell(row.Col(j)) != "" {
				width = j + 1
				break
			}
		}
	}
	if width == 0 {
		return nil
	}

	rows := make([][]string, 0, last+1)
	lastFilled := -1
	for i := 0; i <= last; i++ {
		cells := make([]string, width)
		if row := sheet.Row(i); row != nil {
			for j := range cells {
				if cells[j] = normalizeCell(row.Col(j)); cells[j] != "" {
					lastFilled = i
				}
			}
		}
		rows = append(rows, cells)
	}
	return rows[:lastFilled+1]
}
