package rite

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstitute(t *testing.T) {
	lookup := MapLookup(map[string]string{"KEY": "Value", "EMPTY": "", "DIR": "/data"})
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "plain text", want: "plain text"},
		{in: "$KEY", want: "Value"},
		{in: "${KEY}", want: "Value"},
		{in: "$KEY: ${ELEMENT:replaced element}", want: "Value: replaced element"},
		{in: "${EMPTY:unused}", want: ""},
		{in: "${MISSING:${DIR}/x}", want: "/data/x"},
		{in: "$DIR/file.csv", want: "/data/file.csv"},
		{in: `price \$5`, want: "price $5"},
		{in: `back\\slash`, want: `back\slash`},
		{in: "${MISSING:a\\}b}", want: "a}b"},
		{in: "$MISSING", wantErr: true},
		{in: "${}", wantErr: true},
		{in: "$", wantErr: true},
		{in: "${KEY", wantErr: true},
		{in: "${MISSING:open", wantErr: true},
		{in: `trailing\`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Substitute(tt.in, lookup)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, tt.in, SubstituteOrKeep(tt.in, lookup))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSubstituteErrorKeepsWholeText(t *testing.T) {
	lookup := MapLookup(map[string]string{"KEY": "Value"})
	text := "This text contains an incorrect variable: ${} and a correct one: ${KEY}"
	assert.Equal(t, text, SubstituteOrKeep(text, lookup))
}

func TestSubstituteXML(t *testing.T) {
	input := `<?xml version="1.0" encoding="UTF-8"?><example><element>$KEY: ${ELEMENT:replaced element}</element><attribute value="${ATTRIBUTE:replaced attribute}" /></example>`

	type doc struct {
		Element   string `xml:"element"`
		Attribute struct {
			Value string `xml:"value,attr"`
		} `xml:"attribute"`
	}

	out, err := SubstituteXML([]byte(input), MapLookup(map[string]string{"KEY": "Value"}))
	require.NoError(t, err)
	var d doc
	require.NoError(t, xml.Unmarshal(out, &d))
	assert.Equal(t, "Value: replaced element", d.Element)
	assert.Equal(t, "replaced attribute", d.Attribute.Value)

	out, err = SubstituteXML([]byte(input), Chain(
		MapLookup(map[string]string{"KEY": "Value"}),
		MapLookup(map[string]string{"ELEMENT": "element from environment", "ATTRIBUTE": "attribute from environment"}),
	))
	require.NoError(t, err)
	require.NoError(t, xml.Unmarshal(out, &d))
	assert.Equal(t, "Value: element from environment", d.Element)
	assert.Equal(t, "attribute from environment", d.Attribute.Value)

	_, err = SubstituteXML([]byte("<a></b>"), nil)
	assert.Error(t, err)
}

func TestChainPrecedence(t *testing.T) {
	user := MapLookup(map[string]string{"A": "user"})
	env := MapLookup(map[string]string{"A": "env", "B": "env"})
	l := Chain(user, nil, env)

	a, _ := l("A")
	b, _ := l("B")
	_, ok := l("C")
	assert.Equal(t, "user", a)
	assert.Equal(t, "env", b)
	assert.False(t, ok)
}

func TestEnvLookup(t *testing.T) {
	t.Setenv("RITE_TEST_VAR", "from env")
	v, ok := EnvLookup()("RITE_TEST_VAR")
	assert.True(t, ok)
	assert.Equal(t, "from env", v)
}

func TestDotEnvLookup(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "base.env")
	second := filepath.Join(dir, "local.env")
	require.NoError(t, os.WriteFile(first, []byte("DB_HOST=db\nDB_PORT=5432\n"), 0644))
	require.NoError(t, os.WriteFile(second, []byte("# override\nDB_HOST=localhost\n"), 0644))

	l, err := DotEnvLookup(first, second)
	require.NoError(t, err)
	host, _ := l("DB_HOST")
	port, _ := l("DB_PORT")
	assert.Equal(t, "localhost", host)
	assert.Equal(t, "5432", port)

	_, err = DotEnvLookup(filepath.Join(dir, "missing.env"))
	assert.Error(t, err)
}
