package types

// BlockRef names a block in a report.
type BlockRef struct {
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"displayName" yaml:"displayName"`
}

// CheckReport is the result of auditing a mod's document against its files.
// Every map is keyed by the file path as written in the document (or, for
// extra markers, relative to the scanned directory).
type CheckReport struct {
	Missing     map[string][]string   `json:"missing" yaml:"missing"`
	Extra       map[string][]string   `json:"extra" yaml:"extra"`
	Nonexistent map[string][]BlockRef `json:"nonexistent" yaml:"nonexistent"`

	// Renames maps an orphaned marker id to the declared id it most
	// likely became.
	Renames map[string]string `json:"renames,omitempty" yaml:"renames,omitempty"`
}

// Clean reports whether no drift was found.
func (r *CheckReport) Clean() bool {
	return len(r.Missing) == 0 && len(r.Extra) == 0 && len(r.Nonexistent) == 0
}
