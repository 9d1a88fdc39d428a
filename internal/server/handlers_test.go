package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flexmod/flexmod/internal/apply"
	"github.com/flexmod/flexmod/internal/document"
	"github.com/flexmod/flexmod/internal/project"
	"github.com/flexmod/flexmod/internal/settings"
	"github.com/flexmod/flexmod/pkg/types"
)

func lampDoc() *types.Document {
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

// setupTestServer creates a mods dir holding the mod "Alpha" whose
// Config/lamp.xml is patched by the blocks of lampDoc.
func setupTestServer(t *testing.T) (*Server, *project.Mod) {
	t.Helper()
	project.ClearCache()

	modsDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(modsDir, "Alpha"), 0755); err != nil {
		t.Fatal(err)
	}
	mod, err := project.Open(filepath.Join(modsDir, "Alpha"))
	if err != nil {
		t.Fatalf("open mod: %v", err)
	}
	if err := os.MkdirAll(mod.ConfigDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(mod.ConfigDir, "lamp.xml"), []byte("<lamp hp=\"100\">\n</lamp>\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := document.Save(context.Background(), mod, lampDoc()); err != nil {
		t.Fatalf("save document: %v", err)
	}

	srv := New(DefaultConfig(), &types.AppConfig{}, project.NewService(modsDir, nil))
	return srv, mod
}

func do(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var result ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode error: %v", err)
	}
	return result
}

func TestListMods(t *testing.T) {
	srv, _ := setupTestServer(t)

	w := do(t, srv, "GET", "/mods", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var mods []types.ModInfo
	if err := json.NewDecoder(w.Body).Decode(&mods); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if len(mods) != 1 || mods[0].Name != "Alpha" || !mods[0].Enabled {
		t.Errorf("Unexpected mods: %+v", mods)
	}
}

func TestGetDocument(t *testing.T) {
	srv, _ := setupTestServer(t)

	w := do(t, srv, "GET", "/mods/Alpha/document", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	doc, err := document.Decode(w.Body.Bytes())
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if len(doc.Configs) != 2 || doc.Configs[0].UniqueID != "Light" {
		t.Errorf("Unexpected configs: %+v", doc.Configs)
	}
}

func TestGetDocument_UnknownMod(t *testing.T) {
	srv, _ := setupTestServer(t)

	for _, path := range []string{"/mods/Nope/document", "/mods/../document"} {
		w := do(t, srv, "GET", path, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, w.Code)
		}
	}
}

func TestPutDocument(t *testing.T) {
	srv, mod := setupTestServer(t)

	doc := lampDoc()
	doc.Configs = doc.Configs[:1]
	doc.Configs = append(doc.Configs, types.Block{
		UniqueID: "Mode", GroupName: types.DefaultGroupName, Kind: types.KindOption, Default: "easy",
		Options: []types.OptionItem{{Key: "easy"}, {Key: "hard"}},
	})

	w := do(t, srv, "PUT", "/mods/Alpha/document", doc)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Settings follow the new document: Hp pruned, Mode added.
	raw, err := os.ReadFile(mod.SettingsPath())
	if err != nil {
		t.Fatal(err)
	}
	ps, err := settings.Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(types.Keys(ps.FinalSettings), ","); got != "Light,Mode" {
		t.Errorf("Expected Light,Mode, got %s", got)
	}
}

func TestPutDocument_Invalid(t *testing.T) {
	srv, _ := setupTestServer(t)

	w := do(t, srv, "PUT", "/mods/Alpha/document", `{"configs": 3}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed document, got %d", w.Code)
	}

	doc := lampDoc()
	doc.Configs[1].UniqueID = "1hp"
	w = do(t, srv, "PUT", "/mods/Alpha/document", doc)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for bad id, got %d", w.Code)
	}
	result := decodeError(t, w)
	if result.Error.Details["problems"] == nil {
		t.Error("Expected problems in details")
	}
}

func TestRenameBlock(t *testing.T) {
	srv, mod := setupTestServer(t)

	if w := do(t, srv, "PATCH", "/mods/Alpha/settings", `{"Light": false}`); w.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", w.Code, w.Body.String())
	}

	w := do(t, srv, "POST", "/mods/Alpha/blocks/Light/rename", RenameBlockRequest{NewID: "Lamp"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	raw, _ := os.ReadFile(mod.SettingsPath())
	ps, err := settings.Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(types.Keys(ps.FinalSettings), ","); got != "Lamp,Hp" {
		t.Errorf("Expected Lamp,Hp, got %s", got)
	}
	if v, _ := ps.FinalSettings.Get("Lamp"); v != false {
		t.Errorf("Expected the selected value to follow the rename, got %v", v)
	}

	w = do(t, srv, "POST", "/mods/Alpha/blocks/Lamp/rename", RenameBlockRequest{NewID: "hp"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for case conflict, got %d", w.Code)
	}
	w = do(t, srv, "POST", "/mods/Alpha/blocks/Ghost/rename", RenameBlockRequest{NewID: "Spirit"})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown block, got %d", w.Code)
	}
}

func TestPatchSettings(t *testing.T) {
	srv, _ := setupTestServer(t)

	w := do(t, srv, "PATCH", "/mods/Alpha/settings", `{"Hp": "250.6", "Light": "FALSE"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	ps, err := settings.Decode(w.Body.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := ps.FinalSettings.Get("Hp"); v != float64(251) {
		t.Errorf("Expected Hp 251, got %v", v)
	}
	if got := strings.Join(types.Keys(ps.FinalSettings), ","); got != "Light,Hp" {
		t.Errorf("Expected the apply order to stay Light,Hp, got %s", got)
	}

	// One bad value rejects the whole patch.
	w = do(t, srv, "PATCH", "/mods/Alpha/settings", `{"Light": true, "Hp": 9000}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
	w = do(t, srv, "GET", "/mods/Alpha/settings", nil)
	ps, _ = settings.Decode(w.Body.Bytes())
	if v, _ := ps.FinalSettings.Get("Light"); v != false {
		t.Errorf("Expected Light to stay false, got %v", v)
	}

	w = do(t, srv, "PATCH", "/mods/Alpha/settings", `{"Ghost": 1}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown block, got %d", w.Code)
	}
}

func TestPresetsAndReset(t *testing.T) {
	srv, _ := setupTestServer(t)

	do(t, srv, "PATCH", "/mods/Alpha/settings", `{"Hp": 300}`)

	w := do(t, srv, "POST", "/mods/Alpha/presets", SavePresetRequest{Name: "tough"})
	if w.Code != http.StatusOK {
		t.Fatalf("save preset: %d %s", w.Code, w.Body.String())
	}

	w = do(t, srv, "POST", "/mods/Alpha/settings/reset", nil)
	ps, _ := settings.Decode(w.Body.Bytes())
	if v, _ := ps.FinalSettings.Get("Hp"); v != float64(100) {
		t.Errorf("Expected Hp reset to 100, got %v", v)
	}

	w = do(t, srv, "POST", "/mods/Alpha/presets/tough/load", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("load preset: %d %s", w.Code, w.Body.String())
	}
	ps, _ = settings.Decode(w.Body.Bytes())
	if v, _ := ps.FinalSettings.Get("Hp"); v != float64(300) {
		t.Errorf("Expected Hp 300 from preset, got %v", v)
	}

	w = do(t, srv, "GET", "/mods/Alpha/presets", nil)
	var names []string
	json.NewDecoder(w.Body).Decode(&names)
	if len(names) != 1 || names[0] != "tough" {
		t.Errorf("Unexpected presets: %v", names)
	}

	if w := do(t, srv, "DELETE", "/mods/Alpha/presets/tough", nil); w.Code != http.StatusOK {
		t.Errorf("delete preset: %d", w.Code)
	}
	if w := do(t, srv, "DELETE", "/mods/Alpha/presets/tough", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 deleting a missing preset, got %d", w.Code)
	}
	if w := do(t, srv, "POST", "/mods/Alpha/presets", SavePresetRequest{Name: "  "}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an empty name, got %d", w.Code)
	}
}

func TestApplyMod(t *testing.T) {
	srv, mod := setupTestServer(t)
	lamp := filepath.Join(mod.ConfigDir, "lamp.xml")

	w := do(t, srv, "POST", "/mods/Alpha/apply?dryRun=true", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var report apply.Report
	if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if !report.DryRun || len(report.Diffs) != 1 {
		t.Errorf("Expected a dry run with one diff, got %+v", report)
	}
	data, _ := os.ReadFile(lamp)
	if string(data) != "<lamp hp=\"100\">\n</lamp>\n" {
		t.Errorf("Dry run wrote the file: %q", data)
	}

	do(t, srv, "PATCH", "/mods/Alpha/settings", `{"Hp": 42}`)
	w = do(t, srv, "POST", "/mods/Alpha/apply", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data, _ = os.ReadFile(lamp)
	want := "<lamp hp=\"42\">\n<!-- FlexMod__Light__Start -->\n<on/>\n<!-- FlexMod__Light__End -->\n</lamp>\n"
	if string(data) != want {
		t.Errorf("Unexpected file:\n%s\nwant\n%s", data, want)
	}

	if w := do(t, srv, "POST", "/mods/Alpha/apply?dryRun=maybe", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a bad dryRun flag, got %d", w.Code)
	}
}

func TestCheck(t *testing.T) {
	srv, mod := setupTestServer(t)

	w := do(t, srv, "GET", "/mods/Alpha/check/missing", nil)
	var missing map[string][]string
	json.NewDecoder(w.Body).Decode(&missing)
	if got := strings.Join(missing["lamp.xml"], ","); got != "Light" {
		t.Errorf("Expected Light missing in lamp.xml, got %v", missing)
	}

	do(t, srv, "POST", "/mods/Alpha/apply", nil)
	if err := os.WriteFile(filepath.Join(mod.ConfigDir, "old.xml"),
		[]byte("<x>\n<!-- FlexMod__Lights__Start -->\n<!-- FlexMod__Lights__End -->\n</x>\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w = do(t, srv, "GET", "/mods/Alpha/check", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var report types.CheckReport
	if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if len(report.Missing) != 0 {
		t.Errorf("Expected nothing missing after apply, got %v", report.Missing)
	}
	if got := strings.Join(report.Extra["old.xml"], ","); got != "Lights" {
		t.Errorf("Expected Lights extra in old.xml, got %v", report.Extra)
	}
	if report.Renames["Lights"] != "Light" {
		t.Errorf("Expected rename hint Lights -> Light, got %v", report.Renames)
	}

	w = do(t, srv, "GET", "/mods/Alpha/check/nonexistent", nil)
	if strings.TrimSpace(w.Body.String()) != "{}" {
		t.Errorf("Expected no nonexistent files, got %s", w.Body.String())
	}
}

func TestGetConfig(t *testing.T) {
	srv, _ := setupTestServer(t)
	srv.appConfig.ScanPatterns = []string{"**/*.xml", "**/*.lua"}

	w := do(t, srv, "GET", "/config", nil)
	var cfg types.AppConfig
	if err := json.NewDecoder(w.Body).Decode(&cfg); err != nil {
		t.Fatal(err)
	}
	if len(cfg.ScanPatterns) != 2 {
		t.Errorf("Unexpected config: %+v", cfg)
	}
}
