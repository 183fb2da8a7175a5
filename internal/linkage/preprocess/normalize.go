package preprocess

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"record-linkage/internal/linkage/model"
)

// Letters NFKD cannot reduce to ASCII. Cyrillic follows the usual
// passport-style romanization.
var translit = map[rune]string{
	'ß': "ss", 'æ': "ae", 'œ': "oe", 'ø': "o", 'đ': "d", 'ł': "l",
	'þ': "th", 'ð': "d", 'ı': "i", 'ħ': "h", 'ŧ': "t", 'ĸ': "k",

	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ж': "zh",
	'з': "z", 'и': "i", 'к': "k", 'л': "l", 'м': "m", 'н': "n", 'о': "o",
	'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u", 'ф': "f", 'х': "kh",
	'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "shch", 'ъ': "", 'ы': "y", 'ь': "",
	'э': "e", 'ю': "iu", 'я': "ia", 'і': "i", 'ї': "i", 'є': "ie", 'ґ': "g",

	'‘': "'", '’': "'", '‚': "'", '′': "'",
	'“': `"`, '”': `"`, '„': `"`, '″': `"`, '«': `"`, '»': `"`,
	'‐': "-", '‑': "-", '‒': "-", '–': "-", '—': "-", '―': "-", '−': "-",
	'…': "...", '⁄': "/",
}

// Clean is the text pipeline for one value. ok is false when nothing is
// left, which callers treat as null. Clean(Clean(x)) == Clean(x).
func Clean(raw, strip, split string) (string, bool) {
	if raw == "" {
		return "", false
	}
	out := toASCII(raw)
	out = strings.ToLower(out)
	out = replaceChars(out, strip, split)
	out = collapseSpaces(out)
	out = strings.Trim(out, ` "'`)
	return out, out != ""
}

// toASCII drops diacritics, transliterates what is left and turns any
// remaining non-ASCII whitespace, punctuation or symbol into a space.
// Unknown letters and digits survive lower-cased.
func toASCII(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r <= unicode.MaxASCII:
			if unicode.IsSpace(r) {
				b.WriteByte(' ')
			} else {
				b.WriteRune(r)
			}
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		default:
			if rep, ok := translit[unicode.ToLower(r)]; ok {
				b.WriteString(rep)
			} else if unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteByte(' ')
			}
		}
	}
	return b.String()
}

// strip characters vanish ("o'neil" -> "oneil"), split characters become a
// word break ("a/s" -> "a s").
func replaceChars(s, strip, split string) string {
	if strip == "" && split == "" {
		return s
	}
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(strip, r) {
			return -1
		}
		if strings.ContainsRune(split, r) {
			return ' '
		}
		return r
	}, s)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Preprocessor applies the per-field rules of a field configuration.
type Preprocessor struct {
	fields map[string]model.FieldSpec
	order  []string
}

func New(fields []model.FieldSpec) *Preprocessor {
	p := &Preprocessor{fields: make(map[string]model.FieldSpec, len(fields))}
	for _, f := range fields {
		p.fields[f.Name] = f
		p.order = append(p.order, f.Name)
	}
	return p
}

// Normalize cleans one value of field. nil in, nil out; an empty result is
// nil too. Price fields and unknown fields pass through unchanged.
func (p *Preprocessor) Normalize(field string, raw *string) *string {
	if raw == nil {
		return nil
	}
	f, ok := p.fields[field]
	if !ok || !f.Kind.Textual() {
		if strings.TrimSpace(*raw) == "" {
			return nil
		}
		v := *raw
		return &v
	}
	out, ok := Clean(*raw, f.StripChars(), f.SplitChars())
	if !ok {
		return nil
	}
	return &out
}

// Apply cleans the comparison fields of every record in c in place. The
// loader puts raw cell values into Fields; Raw is left alone for output.
// Null values are removed from the map.
func (p *Preprocessor) Apply(c *model.Collection) {
	for _, id := range c.IDs() {
		r, _ := c.Get(id)
		for _, name := range p.order {
			raw, ok := r.Fields[name]
			if !ok {
				continue
			}
			if v := p.Normalize(name, &raw); v != nil {
				r.Fields[name] = *v
			} else {
				delete(r.Fields, name)
			}
		}
	}
}
