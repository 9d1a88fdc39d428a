package testutil

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/flexmod/flexmod/internal/document"
	"github.com/flexmod/flexmod/internal/project"
	"github.com/flexmod/flexmod/pkg/types"
)

// RandomString generates a random string of n characters
func RandomString(n int) string {
	bytes := make([]byte, n/2+1)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)[:n]
}

// ModFixture is a mod created on disk for a test
type ModFixture struct {
	Name string
	Mod  *project.Mod
}

// CreateMod creates the mod name under modsDir with the given document and
// Config files. File paths are relative to the mod's Config directory.
func CreateMod(modsDir, name string, doc *types.Document, files map[string]string) (*ModFixture, error) {
	dir := filepath.Join(modsDir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	mod, err := project.Open(dir)
	if err != nil {
		return nil, err
	}

	for rel, content := range files {
		path := filepath.Join(mod.ConfigDir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return nil, err
		}
	}

	if doc != nil {
		if err := document.Save(context.Background(), mod, doc); err != nil {
			return nil, err
		}
	}
	return &ModFixture{Name: name, Mod: mod}, nil
}

// ConfigFile returns the absolute path of a file in the mod's Config directory
func (f *ModFixture) ConfigFile(rel string) string {
	return filepath.Join(f.Mod.ConfigDir, rel)
}

// ReadConfigFile reads a file from the mod's Config directory
func (f *ModFixture) ReadConfigFile(rel string) (string, error) {
	content, err := os.ReadFile(f.ConfigFile(rel))
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// WriteConfigFile replaces a file in the mod's Config directory
func (f *ModFixture) WriteConfigFile(rel, content string) error {
	return os.WriteFile(f.ConfigFile(rel), []byte(content), 0644)
}

// LampDocument declares a Light switch patching lamp.xml through markers
// and an Hp slider writing the hp attribute of the lamp element.
func LampDocument() *types.Document {
	doc := types.NewDocument()
	doc.Configs = append(doc.Configs,
		types.Block{
			UniqueID:    "Light",
			DisplayName: "Lamp light",
			GroupName:   types.DefaultGroupName,
			Kind:        types.KindSwitch,
			Default:     true,
			Options: []types.OptionItem{
				{Key: "true", ExecUnits: []types.ExecUnit{{FilePath: "lamp.xml", Code: `<on/>`}}},
				{Key: "false", ExecUnits: []types.ExecUnit{{FilePath: "lamp.xml", Code: `<off/>`}}},
			},
		},
		types.Block{
			UniqueID:  "Hp",
			GroupName: types.DefaultGroupName,
			Kind:      types.KindIntSlider,
			Default:   float64(100),
			Range:     types.Range{Min: 1, Max: 500, Step: 1},
			Targets:   []types.XpathTarget{{FilePath: "lamp.xml", Exprs: []string{"/lamp/@hp"}}},
		},
	)
	return doc
}

// LampFile is the untouched lamp.xml LampDocument patches.
const LampFile = "<lamp hp=\"100\">\n</lamp>\n"

// ---- Assertion Matchers ----

// EventMatcher helps match stream events
type EventMatcher struct {
	events []ModEvent
}

// NewEventMatcher creates an event matcher
func NewEventMatcher(events []ModEvent) *EventMatcher {
	return &EventMatcher{events: events}
}

// HasType checks if any event has the given type
func (m *EventMatcher) HasType(eventType string) bool {
	return m.CountType(eventType) > 0
}

// CountType counts events of given type
func (m *EventMatcher) CountType(eventType string) int {
	return len(m.FilterType(eventType))
}

// FilterType returns events of given type
func (m *EventMatcher) FilterType(eventType string) []ModEvent {
	var filtered []ModEvent
	for _, evt := range m.events {
		if evt.Type == eventType {
			filtered = append(filtered, evt)
		}
	}
	return filtered
}

// ForMod returns the events concerning mod
func (m *EventMatcher) ForMod(mod string) *EventMatcher {
	var filtered []ModEvent
	for i := range m.events {
		if m.events[i].Mod() == mod {
			filtered = append(filtered, m.events[i])
		}
	}
	return &EventMatcher{events: filtered}
}
