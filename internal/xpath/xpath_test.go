package xpath

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexmod/flexmod/pkg/types"
)

const units = `<?xml version="1.0" encoding="utf-8"?>
<!-- header -->
<configs version="2">
    <!-- <unit id='tank' hp="100"/> -->
    <unit id='tank'   hp="100" armor = "5" />
    <unit id="jeep" hp="50"/>
    <group name="air">
        <unit id="heli" hp="80"><weapon dmg="7"/></unit>
    </group>
</configs>
`

func TestIsAttributeSelector(t *testing.T) {
	assert.True(t, IsAttributeSelector("/configs/unit/@hp"))
	assert.True(t, IsAttributeSelector("@version"))
	assert.False(t, IsAttributeSelector("/configs/unit"))
	assert.False(t, IsAttributeSelector("unit[@hp]"))
}

func TestParseExpr(t *testing.T) {
	tests := []struct {
		expr    string
		abs     bool
		steps   int
		attr    string
		wantErr bool
	}{
		{expr: "/configs/unit/@hp", abs: true, steps: 2, attr: "hp"},
		{expr: "unit/@hp", steps: 1, attr: "hp"},
		{expr: "@version", attr: "version"},
		{expr: "/@version", abs: true, attr: "version"},
		{expr: "//unit/@hp", abs: true, steps: 1, attr: "hp"},
		{expr: "group/*[1]", steps: 2},
		{expr: "unit[@id='tank']/@hp", steps: 1, attr: "hp"},
		{expr: "", wantErr: true},
		{expr: "unit/", wantErr: true},
		{expr: "unit[@id='x'/@hp", wantErr: true},
		{expr: "unit/@", wantErr: true},
		{expr: "unit[0]", wantErr: true},
		{expr: "a///b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			e, err := ParseExpr(tt.expr)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrSyntax)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.abs, e.Absolute)
			assert.Len(t, e.Steps, tt.steps)
			assert.Equal(t, tt.attr, e.Attr)
		})
	}
}

func TestParse(t *testing.T) {
	root, err := Parse([]byte(units))
	require.NoError(t, err)

	assert.Equal(t, "configs", root.Name)
	comments := root.Comments()
	require.Len(t, comments, 1)
	assert.Equal(t, ` <unit id='tank' hp="100"/> `, comments[0].Text)

	elems := root.Elements()
	require.Len(t, elems, 3)
	assert.Equal(t, `<unit id="jeep" hp="50"/>`, units[elems[1].Start:elems[1].End])
	assert.Equal(t, `<unit id='tank'   hp="100" armor = "5" />`, units[elems[0].Start:elems[0].End])

	_, err = Parse([]byte("just text"))
	assert.ErrorIs(t, err, ErrParse)
}

func TestParse_ClosingTags(t *testing.T) {
	content := "<root>\n  <a/>\n  <b></b>\n</root>\n<!-- trailing </note> -->\n"
	root, err := Parse([]byte(content))
	require.NoError(t, err)

	require.True(t, root.Closed)
	assert.False(t, root.SelfClosing)
	assert.Equal(t, "</root>", content[root.Close:root.Close+7])

	elems := root.Elements()
	require.Len(t, elems, 2)
	assert.True(t, elems[0].SelfClosing)
	assert.False(t, elems[1].SelfClosing)
	assert.Equal(t, "</b>", content[elems[1].Close:elems[1].Close+4])

	bare, err := Parse([]byte("<root/>\n"))
	require.NoError(t, err)
	assert.True(t, bare.Closed)
	assert.True(t, bare.SelfClosing)
}

func TestSelect(t *testing.T) {
	root, err := Parse([]byte(units))
	require.NoError(t, err)

	ids := func(expr string) []string {
		e, err := ParseExpr(expr)
		require.NoError(t, err)
		var out []string
		for _, n := range e.Select(root) {
			v, _ := n.Attr("id")
			if v == "" {
				v = n.Name
			}
			out = append(out, v)
		}
		return out
	}

	assert.Equal(t, []string{"tank", "jeep"}, ids("/configs/unit"))
	assert.Equal(t, []string{"tank", "jeep"}, ids("unit"))
	assert.Equal(t, []string{"tank", "jeep", "heli"}, ids("//unit"))
	assert.Equal(t, []string{"jeep"}, ids("unit[@id='jeep']"))
	assert.Equal(t, []string{"jeep"}, ids("unit[2]"))
	assert.Equal(t, []string{"jeep"}, ids("unit[last()]"))
	assert.Equal(t, []string{"heli"}, ids("group/unit[weapon]"))
	assert.Equal(t, []string{"heli"}, ids("group/*/weapon/.."))
	assert.Equal(t, []string{"configs"}, ids("."))
	assert.Empty(t, ids("/configs/tank"))
}

func TestValidateAttribute(t *testing.T) {
	data := []byte(units)
	assert.True(t, ValidateAttribute(data, "/configs/unit/@hp"))
	assert.True(t, ValidateAttribute(data, "@version"))
	assert.True(t, ValidateAttribute(data, "unit/@armor"))
	assert.False(t, ValidateAttribute(data, "/configs/unit"))
	assert.False(t, ValidateAttribute(data, "unit/@speed"))
	assert.False(t, ValidateAttribute(data, "plane/@hp"))
	assert.False(t, ValidateAttribute([]byte("<broken"), "@a"))
}

func TestPatch_Locality(t *testing.T) {
	got, err := Patch(units, "/configs/unit[@id='tank']/@hp", "250")
	require.NoError(t, err)

	before := strings.Split(units, "\n")
	after := strings.Split(got, "\n")
	require.Equal(t, len(before), len(after))
	for i := range before {
		if i == 4 {
			assert.Equal(t, `    <unit id='tank'   hp="250" armor = "5" />`, after[i])
			continue
		}
		assert.Equal(t, before[i], after[i], "line %d", i)
	}
}

func TestPatch_EveryResolvedElement(t *testing.T) {
	got, err := Patch(units, "//unit/@hp", "1")
	require.NoError(t, err)

	assert.Contains(t, got, `<unit id='tank'   hp="1" armor = "5" />`)
	assert.Contains(t, got, `<unit id="jeep" hp="1"/>`)
	assert.Contains(t, got, `<unit id="heli" hp="1">`)
	// Commented-out markup is not an element.
	assert.Contains(t, got, `<!-- <unit id='tank' hp="100"/> -->`)
}

func TestPatch_IdenticalTags(t *testing.T) {
	content := "<root>\n  <a v='1'/>\n  <a v='1'/>\n</root>"
	got, err := Patch(content, "a[2]/@v", "9")
	require.NoError(t, err)
	assert.Equal(t, "<root>\n  <a v='1'/>\n  <a v='9'/>\n</root>", got)
}

func TestPatch_EscapedSiblingAttribute(t *testing.T) {
	content := `<root><unit name="A &amp; B" hp='3'/></root>`
	got, err := Patch(content, "unit/@hp", "4")
	require.NoError(t, err)
	assert.Equal(t, `<root><unit name="A &amp; B" hp='4'/></root>`, got)
}

func TestPatch_RootAttribute(t *testing.T) {
	got, err := Patch(units, "@version", "3")
	require.NoError(t, err)
	assert.Contains(t, got, `<configs version="3">`)
}

func TestPatch_Errors(t *testing.T) {
	_, err := Patch(units, "/configs/unit", "1")
	assert.ErrorIs(t, err, ErrNotAttribute)

	got, err := Patch(units, "unit/@speed", "1")
	assert.ErrorIs(t, err, ErrUnresolved)
	assert.Equal(t, units, got)

	_, err = Patch("no markup here", "@a", "1")
	assert.ErrorIs(t, err, ErrParse)
}

func TestPatch_TagNotInText(t *testing.T) {
	// The decoded value of t holds a newline written as a decimal character
	// reference, which the tag pattern cannot reproduce.
	content := "<root><item t=\"a&#10;b\" v=\"1\"/></root>"

	got, err := Patch(content, "item/@v", "9")
	assert.ErrorIs(t, err, ErrTagNotFound)
	assert.Equal(t, content, got)

	path := filepath.Join(t.TempDir(), "items.xml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	outcomes := UpdateFile(afero.NewOsFs(), path, "V", []string{"item/@v"}, "9")
	require.Len(t, outcomes, 1)
	assert.Equal(t, types.StatusSkipped, outcomes[0].Status)
	assert.Contains(t, outcomes[0].Reason, ErrTagNotFound.Error())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestUpdateFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "units.xml")
	require.NoError(t, os.WriteFile(path, []byte(units), 0644))

	outcomes := UpdateFile(afero.NewOsFs(), path, "Hp", []string{"unit[@id='jeep']/@hp", "unit/@speed", "group/unit/@hp"}, "60")
	require.Len(t, outcomes, 3)
	assert.Equal(t, types.StatusApplied, outcomes[0].Status)
	assert.Equal(t, types.StatusSkipped, outcomes[1].Status)
	assert.Equal(t, ErrUnresolved.Error(), outcomes[1].Reason)
	assert.Equal(t, types.StatusApplied, outcomes[2].Status)
	assert.Equal(t, "Hp", outcomes[0].BlockID)
	assert.Equal(t, "60", outcomes[0].Value)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<unit id="jeep" hp="60"/>`)
	assert.Contains(t, string(data), `<unit id="heli" hp="60">`)

	again := UpdateFile(afero.NewOsFs(), path, "Hp", []string{"unit[@id='jeep']/@hp"}, "60")
	assert.Equal(t, types.StatusUnchanged, again[0].Status)

	missing := UpdateFile(afero.NewOsFs(), filepath.Join(dir, "gone.xml"), "Hp", []string{"a/@b", "c/@d"}, "1")
	require.Len(t, missing, 2)
	for _, o := range missing {
		assert.Equal(t, types.StatusSkipped, o.Status)
		assert.Contains(t, o.Reason, "read failed")
	}
}
