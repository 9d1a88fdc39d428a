package types

// ModInfo describes a mod directory found under the mods dir.
type ModInfo struct {
	Name        string  `json:"name"`
	Dir         string  `json:"dir"`
	Enabled     bool    `json:"enabled"`
	HasSettings bool    `json:"hasSettings"`
	Time        ModTime `json:"time"`
}

// ModTime contains mod timestamps.
type ModTime struct {
	Modified int64 `json:"modified"`
}
