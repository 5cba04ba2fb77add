package extract

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSpec_FieldNames(t *testing.T) {
	a := Rule{Prefix: "a", Value: "1"}
	b := Rule{Prefix: "b", Value: "2"}

	named := Named(Field{Name: "volume", Rule: a}, Field{Name: "average", Rule: b})
	assert.Equal(t, KindNamed, named.Kind())
	assert.Equal(t, []Field{{"volume", a}, {"average", b}}, named.Fields("ignored"))

	indexed := Indexed(a, b)
	assert.Equal(t, KindIndexed, indexed.Kind())
	assert.Equal(t, []Field{{"data0", a}, {"data1", b}}, indexed.Fields(""))
	assert.Equal(t, []Field{{"price0", a}, {"price1", b}}, indexed.Fields("price"))

	single := Single(a)
	assert.Equal(t, KindSingle, single.Kind())
	assert.Equal(t, []Field{{"data", a}}, single.Fields(""))
	assert.Equal(t, 1, single.Len())

	byMap := NamedMap(map[string]Rule{"z": a, "m": b})
	assert.Equal(t, []Field{{"m", b}, {"z", a}}, byMap.Fields(""))

	var zero Spec
	assert.Empty(t, zero.Fields(""))
}

func TestSpec_UnmarshalYAML_Shapes(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		kind  Kind
		names []string
	}{
		{
			name:  "named pairs and triples keep document order",
			doc:   "volume: ['Volume:', '[0-9,]+']\naverage: ['Avg:', '[0-9.]+', 'USD']\n",
			kind:  KindNamed,
			names: []string{"volume", "average"},
		},
		{
			name:  "indexed list",
			doc:   "- ['Bid:', '[0-9.]+']\n- ['Ask:', '[0-9.]+']\n",
			kind:  KindIndexed,
			names: []string{"data0", "data1"},
		},
		{
			name:  "single pair",
			doc:   "['Last:', '[0-9.]+']\n",
			kind:  KindSingle,
			names: []string{"data"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Spec
			require.NoError(t, yaml.Unmarshal([]byte(tt.doc), &s))
			assert.Equal(t, tt.kind, s.Kind())

			var names []string
			for _, f := range s.Fields("") {
				names = append(names, f.Name)
			}
			assert.Equal(t, tt.names, names)
		})
	}
}

func TestSpec_UnmarshalYAML_Suffix(t *testing.T) {
	var s Spec
	require.NoError(t, yaml.Unmarshal([]byte("rate: ['Rate:', '[0-9.]+', 'TH/s']"), &s))
	assert.Equal(t, Rule{Prefix: "Rate:", Value: "[0-9.]+", Suffix: "TH/s"}, s.Fields("")[0].Rule)
}

func TestSpec_UnmarshalYAML_BadShapes(t *testing.T) {
	docs := map[string]string{
		"scalar":           "just a string",
		"empty list":       "[]",
		"one pattern":      "['only-prefix']",
		"four patterns":    "['a', 'b', 'c', 'd']",
		"named bad rule":   "volume: ['Volume:']",
		"named not a list": "volume: 12",
		"indexed bad rule": "- ['a', 'b']\n- ['c']\n",
	}

	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			var s Spec
			err := yaml.Unmarshal([]byte(doc), &s)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrBadSpec), "got %v", err)
		})
	}
}

func TestSpec_JSON_RoundTripKeepsOrder(t *testing.T) {
	doc := `{"volume":["Volume:","[0-9,]+"],"average":["Avg:","[0-9.]+","USD"]}`

	var s Spec
	require.NoError(t, json.Unmarshal([]byte(doc), &s))
	assert.Equal(t, KindNamed, s.Kind())
	assert.Equal(t, "volume", s.Fields("")[0].Name)

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, doc, string(out))
	assert.Equal(t, doc, string(out))
}

func TestSpec_JSON_ListShapes(t *testing.T) {
	var indexed Spec
	require.NoError(t, json.Unmarshal([]byte(`[["a","1"],["b","2","c"]]`), &indexed))
	assert.Equal(t, KindIndexed, indexed.Kind())
	assert.Equal(t, 2, indexed.Len())

	var single Spec
	require.NoError(t, json.Unmarshal([]byte(`["a","1"]`), &single))
	assert.Equal(t, KindSingle, single.Kind())

	var bad Spec
	err := json.Unmarshal([]byte(`42`), &bad)
	assert.True(t, errors.Is(err, ErrBadSpec))
}

func TestSpec_YAML_RoundTrip(t *testing.T) {
	in := Named(
		Field{Name: "volume", Rule: Rule{Prefix: "Volume:", Value: "[0-9,]+"}},
		Field{Name: "average", Rule: Rule{Prefix: "Avg:", Value: "[0-9.]+", Suffix: "USD"}},
	)

	data, err := yaml.Marshal(in)
	require.NoError(t, err)

	var out Spec
	require.NoError(t, yaml.Unmarshal(data, &out))
	assert.Equal(t, in.Fields(""), out.Fields(""))
}

func TestSpec_Validate(t *testing.T) {
	good := Single(Rule{Prefix: "a", Value: "[0-9]+"})
	assert.NoError(t, good.Validate())

	badPattern := Named(Field{Name: "x", Rule: Rule{Prefix: "(", Value: "1"}})
	var perr *PatternError
	assert.True(t, errors.As(badPattern.Validate(), &perr))

	reserved := Named(Field{Name: "url", Rule: Rule{Prefix: "a", Value: "1"}})
	assert.True(t, errors.Is(reserved.Validate(), ErrBadSpec))
}
