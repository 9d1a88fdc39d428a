package document

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexmod/flexmod/internal/project"
	"github.com/flexmod/flexmod/pkg/types"
)

func openMod(t *testing.T) *project.Mod {
	t.Helper()
	project.ClearCache()
	m, err := project.Open(t.TempDir())
	require.NoError(t, err)
	return m
}

const sampleDoc = `{
	// written by the editor
	"groups": [{"groupName": "Visuals", "groupDesc": ""}],
	"configs": [
		{
			"uniqueId": "Light",
			"displayName": "Light",
			"groupName": "Visuals",
			"configType": "boolConfig",
			"desc": "",
			"defaultValue": true,
			"optionItems": [
				{"optionKey": "true", "execUnits": [{"filePath": "f.xml", "execCode": "<on/>"}]}
			]
		},
		{
			"uniqueId": "Speed",
			"displayName": "Speed",
			"groupName": "Gone",
			"configType": "intSliderConfig",
			"desc": "",
			"defaultValue": 5.7,
			"minValue": 1,
			"maxValue": 10,
			"stepValue": 1,
			"XpathSet": [{"filePath": "f.xml", "xpath": ["/root/unit/@speed"]}]
		}
	]
}`

func TestLoad_MissingCreatesEmpty(t *testing.T) {
	m := openMod(t)

	doc, res, err := Load(context.Background(), m)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.False(t, res.Recovered)
	require.Len(t, doc.Groups, 1)
	assert.Equal(t, types.DefaultGroupName, doc.Groups[0].Name)
	assert.Empty(t, doc.Configs)
	assert.FileExists(t, m.DocumentPath())
}

func TestLoad_MalformedIsReplaced(t *testing.T) {
	for name, content := range map[string]string{
		"not json":       `{"groups": [`,
		"array root":     `[1, 2]`,
		"configs object": `{"configs": {"uniqueId": "x"}}`,
		"config scalar":  `{"configs": [42]}`,
	} {
		t.Run(name, func(t *testing.T) {
			m := openMod(t)
			require.NoError(t, os.WriteFile(m.DocumentPath(), []byte(content), 0644))

			doc, res, err := Load(context.Background(), m)
			require.NoError(t, err)
			assert.True(t, res.Recovered)
			assert.ErrorIs(t, res.Cause, ErrMalformed)
			assert.Empty(t, doc.Configs)

			// The replacement was persisted
			again, res2, err := Load(context.Background(), m)
			require.NoError(t, err)
			assert.False(t, res2.Recovered)
			assert.Len(t, again.Groups, 1)
		})
	}
}

func TestLoad_FixesStructure(t *testing.T) {
	m := openMod(t)
	require.NoError(t, os.WriteFile(m.DocumentPath(), []byte(sampleDoc), 0644))

	doc, res, err := Load(context.Background(), m)
	require.NoError(t, err)
	assert.True(t, res.Fixed)

	require.Len(t, doc.Groups, 2)
	assert.Equal(t, types.DefaultGroupName, doc.Groups[0].Name)
	assert.Equal(t, "Visuals", doc.Groups[1].Name)

	light := doc.Block("Light")
	require.NotNil(t, light)
	require.Len(t, light.Options, 2)
	assert.Equal(t, "true", light.Options[0].Key)
	assert.Equal(t, "false", light.Options[1].Key)
	assert.Empty(t, light.Options[1].ExecUnits)

	speed := doc.Block("Speed")
	require.NotNil(t, speed)
	assert.Equal(t, types.KindIntSlider, speed.Kind)
	assert.Equal(t, float64(5), speed.Default)
	assert.Equal(t, types.DefaultGroupName, speed.GroupName)

	data, err := os.ReadFile(m.DocumentPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"execCode": "<on/>"`)
	assert.Contains(t, string(data), `"configType": "intSlider"`)
	assert.False(t, strings.Contains(string(data), "// written"))
}

func TestValidateAndFix(t *testing.T) {
	doc := &types.Document{
		Groups: []types.Group{{Name: "A"}, {Name: "A", Desc: "dup"}},
	}
	assert.True(t, ValidateAndFix(doc))
	assert.Equal(t, []types.Group{{Name: types.DefaultGroupName}, {Name: "A"}}, doc.Groups)
	assert.NotNil(t, doc.Configs)
	assert.False(t, ValidateAndFix(doc))
}

func TestSaveRoundTrip(t *testing.T) {
	m := openMod(t)
	doc := types.NewDocument()
	doc.Configs = append(doc.Configs, types.Block{
		UniqueID:  "Mode",
		GroupName: types.DefaultGroupName,
		Kind:      types.KindOption,
		Default:   "fast",
		Options: []types.OptionItem{
			{Key: "fast", ExecUnits: []types.ExecUnit{{FilePath: "a.lua", Code: "speed = 2"}}},
			{Key: "slow", ExecUnits: []types.ExecUnit{}},
		},
	})
	require.NoError(t, Save(context.Background(), m, doc))

	loaded, res, err := Load(context.Background(), m)
	require.NoError(t, err)
	assert.False(t, res.Fixed)
	assert.Equal(t, doc.Configs, loaded.Configs)
}
