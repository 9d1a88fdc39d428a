package event

// PatchData is the data for patch.applied, patch.unchanged and patch.skipped events.
type PatchData struct {
	Mod     string `json:"mod"`
	BlockID string `json:"blockId"`
	File    string `json:"file,omitempty"`
	Expr    string `json:"xpath,omitempty"`
	Reason  string `json:"reason,omitempty"`
	DryRun  bool   `json:"dryRun,omitempty"`
}

// ApplyCompletedData is the data for apply.completed events.
type ApplyCompletedData struct {
	Mod       string `json:"mod"`
	Applied   int    `json:"applied"`
	Unchanged int    `json:"unchanged"`
	Skipped   int    `json:"skipped"`
	DryRun    bool   `json:"dryRun,omitempty"`
}

// SettingsUpdatedData is the data for settings.updated events.
type SettingsUpdatedData struct {
	Mod     string   `json:"mod"`
	Changed []string `json:"changed,omitempty"`
	Reason  string   `json:"reason,omitempty"` // "set" | "reconcile" | "reset" | "preset"
}

// DocumentUpdatedData is the data for document.updated events.
type DocumentUpdatedData struct {
	Mod       string `json:"mod"`
	Recovered bool   `json:"recovered,omitempty"`
}

// CheckCompletedData is the data for check.completed events.
type CheckCompletedData struct {
	Mod         string `json:"mod"`
	Missing     int    `json:"missing"`
	Extra       int    `json:"extra"`
	Nonexistent int    `json:"nonexistent"`
}

// FileChangedData is the data for file.changed events.
type FileChangedData struct {
	Mod  string `json:"mod"`
	File string `json:"file"`
}
