package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/flexmod/flexmod/pkg/types"
)

var (
	ErrIDEmpty            = errors.New("id is empty")
	ErrIDInvalidChars     = errors.New("id may only contain letters, digits and underscores")
	ErrIDLeadingDigit     = errors.New("id must not start with a digit")
	ErrIDEdgeUnderscore   = errors.New("id must not start or end with an underscore")
	ErrIDDoubleUnderscore = errors.New("id must not contain consecutive underscores")
	ErrIDDuplicate        = errors.New("id is already used by another block")
	ErrIDCaseConflict     = errors.New("id differs from another block's id only by case")
	ErrBlockNotFound      = errors.New("block not found")
)

// ValidateID checks the syntactic id rules. Uniqueness is checked by CheckUnique.
func ValidateID(id string) error {
	if id == "" {
		return ErrIDEmpty
	}
	for _, r := range id {
		if !isIDRune(r) {
			return ErrIDInvalidChars
		}
	}
	if id[0] >= '0' && id[0] <= '9' {
		return ErrIDLeadingDigit
	}
	if strings.HasPrefix(id, "_") || strings.HasSuffix(id, "_") {
		return ErrIDEdgeUnderscore
	}
	if strings.Contains(id, "__") {
		return ErrIDDoubleUnderscore
	}
	return nil
}

// isIDRune accepts ASCII letters, digits and underscore. Marker comments embed the
// id verbatim, so anything else would need escaping in target files.
func isIDRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

// CheckUnique verifies id against every block of doc except the one at index self
// (pass -1 for a block that is not in the document yet).
func CheckUnique(doc *types.Document, id string, self int) error {
	for i := range doc.Configs {
		if i == self {
			continue
		}
		other := doc.Configs[i].UniqueID
		if other == id {
			return ErrIDDuplicate
		}
		if other != "" && strings.EqualFold(other, id) {
			return fmt.Errorf("%w: %s", ErrIDCaseConflict, other)
		}
	}
	return nil
}

// RenameBlock changes a block's id. The id is left untouched when the new one is rejected.
func RenameBlock(doc *types.Document, oldID, newID string) error {
	idx := indexOf(doc, oldID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, oldID)
	}
	if oldID == newID {
		return nil
	}
	if err := ValidateID(newID); err != nil {
		return err
	}
	if err := CheckUnique(doc, newID, idx); err != nil {
		return err
	}
	doc.Configs[idx].UniqueID = newID
	return nil
}

// NewBlockID returns a fresh id that satisfies ValidateID and is unique in doc.
func NewBlockID(doc *types.Document) string {
	for {
		id := "config_" + ulid.Make().String()
		if CheckUnique(doc, id, -1) == nil {
			return id
		}
	}
}

func indexOf(doc *types.Document, id string) int {
	for i := range doc.Configs {
		if doc.Configs[i].UniqueID == id {
			return i
		}
	}
	return -1
}
