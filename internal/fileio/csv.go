package fileio

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const sniffBytes = 4096

// кодировки, которые встречаются в выгрузках; остальное читаем как UTF-8
var charsets = map[string]encoding.Encoding{
	"windows-1251": charmap.Windows1251,
	"cp1251":       charmap.Windows1251,
	"windows-1252": charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
	"koi8-r":       charmap.KOI8R,
}

// readCSV reads all rows of a delimited file. The charset is detected from
// the first bytes and decoded to UTF-8 (a UTF-8 BOM is dropped); the
// delimiter is the most frequent of , ; and tab in the first line.
func readCSV(r io.Reader) ([][]string, error) {
	br := bufio.NewReaderSize(r, sniffBytes)
	peek, err := br.Peek(sniffBytes)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, err
	}

	cr := csv.NewReader(transform.NewReader(br, decoderFor(detectCharset(peek))))
	cr.Comma = sniffDelimiter(peek)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
}

func detectCharset(peek []byte) string {
	if len(peek) == 0 {
		return "utf-8"
	}
	det, err := chardet.NewTextDetector().DetectBest(peek)
	if err != nil || det == nil {
		return "utf-8"
	}
	cs := strings.ToLower(det.Charset)
	// chardet называет чистый ASCII latin-1; валидный UTF-8 читаем как UTF-8
	if (cs == "iso-8859-1" || cs == "windows-1252") && validUTF8(peek) {
		return "utf-8"
	}
	return cs
}

// validUTF8 допускает обрезанный последний символ в конце окна.
func validUTF8(p []byte) bool {
	for i := 0; i < utf8.UTFMax && len(p) > 0; i++ {
		if utf8.Valid(p) {
			return true
		}
		if utf8.RuneStart(p[len(p)-1]) {
			p = p[:len(p)-1]
			return utf8.Valid(p)
		}
		p = p[:len(p)-1]
	}
	return utf8.Valid(p)
}

func decoderFor(charset string) transform.Transformer {
	if enc, ok := charsets[charset]; ok {
		return enc.NewDecoder()
	}
	return unicode.BOMOverride(unicode.UTF8.NewDecoder())
}

// sniffDelimiter: Excel с русской локалью сохраняет CSV через ";".
func sniffDelimiter(peek []byte) rune {
	line, _, _ := bytes.Cut(peek, []byte("\n"))
	best, bestN := ',', bytes.Count(line, []byte(","))
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}
