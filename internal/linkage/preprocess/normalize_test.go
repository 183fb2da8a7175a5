package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"record-linkage/internal/linkage/model"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"hyphen removed, slash split", "Acme-Corp / Ltd", "acmecorp ltd", true},
		{"diacritics and quotes", "  'Müller & Söhne, GmbH'\n", "muller & sohne gmbh", true},
		{"newlines collapse", "Blue\n\nSky   Holdings", "blue sky holdings", true},
		{"colon splits", "Unit:4 Supplies", "unit 4 supplies", true},
		{"surrounding double quotes", `"ACME"`, "acme", true},
		{"curly apostrophe is stripped", "O’Neil Brothers", "oneil brothers", true},
		{"cyrillic romanized", "Ёлка", "elka", true},
		{"ligature and sharp s", "Straße Œuvre", "strasse oeuvre", true},
		{"only punctuation", " -- ", "", false},
		{"em dash only", "—", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Clean(tt.input, model.DefaultStrip, model.DefaultSplit)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestClean_Idempotent(t *testing.T) {
	inputs := []string{
		`'"x`,
		`"' ACME / ltd '"`,
		"Société Générale – Paris",
		"ÆRØ Shipping A/S",
		"Ｆｕｌｌｗｉｄｔｈ Ｃｏ",
		"ΑΘΗΝΑ trading",
		"  a -  b  ",
		"Tab\tSeparated Name",
		"½ price store",
	}
	rules := [][2]string{
		{model.DefaultStrip, model.DefaultSplit},
		{"", ""},
		{"a", " "},
		{`"`, "'"},
	}
	for _, in := range inputs {
		for _, r := range rules {
			once, _ := Clean(in, r[0], r[1])
			twice, _ := Clean(once, r[0], r[1])
			assert.Equal(t, once, twice, "input %q strip %q split %q", in, r[0], r[1])
		}
	}
}

func TestPreprocessor_Normalize(t *testing.T) {
	none := ""
	p := New([]model.FieldSpec{
		{Name: "sss", Kind: model.KindString},
		{Name: "code", Kind: model.KindExact, Strip: &none, Split: &none},
		{Name: "price", Kind: model.KindPrice},
	})
	ptr := func(s string) *string { return &s }

	assert.Nil(t, p.Normalize("sss", nil))
	assert.Nil(t, p.Normalize("sss", ptr(" ' ")))
	assert.Equal(t, "acme corp", *p.Normalize("sss", ptr("ACME  Corp")))
	assert.Equal(t, "ab-12/3", *p.Normalize("code", ptr("AB-12/3")))
	assert.Equal(t, " 1 234,50 ", *p.Normalize("price", ptr(" 1 234,50 ")))
	assert.Nil(t, p.Normalize("price", ptr("  ")))
}

func TestPreprocessor_Apply(t *testing.T) {
	c := model.NewCollection("usm3.csv", model.SourceA)
	require.NoError(t, c.Add(model.Record{
		ID:     "usm3.csv0",
		Fields: map[string]string{"sss": "Acme-Corp"},
		Raw:    map[string]string{"sss": "Acme-Corp", "rid": "7"},
	}))
	require.NoError(t, c.Add(model.Record{ID: "usm3.csv1", Fields: map[string]string{"sss": " , "}}))
	require.NoError(t, c.Add(model.Record{ID: "usm3.csv2", Fields: map[string]string{"sss": "Zeta LLC"}}))

	p := New(model.DefaultFields())
	p.Apply(c)
	p.Apply(c)

	r0, _ := c.Get("usm3.csv0")
	assert.Equal(t, map[string]string{"sss": "acmecorp"}, r0.Fields)
	assert.Equal(t, "Acme-Corp", r0.Raw["sss"])

	r1, _ := c.Get("usm3.csv1")
	_, ok := r1.Value("sss")
	assert.False(t, ok)

	r2, _ := c.Get("usm3.csv2")
	assert.Equal(t, "zeta llc", r2.Fields["sss"])
}
