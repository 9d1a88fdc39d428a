package model

import (
	"errors"
	"fmt"

	"github.com/flexmod/flexmod/pkg/types"
)

var (
	ErrUnknownKind   = errors.New("unknown block kind")
	ErrRangeOrder    = errors.New("slider minimum must be less than maximum")
	ErrStepRange     = errors.New("slider step must be greater than zero and less than maximum")
	ErrDefaultRange  = errors.New("slider default must lie within the range")
	ErrGroupMissing  = errors.New("block refers to an unknown group")
	ErrDefaultOption = errors.New("default value does not match any option")
)

// NewBlock returns a block of the given kind carrying the stock defaults,
// with a fresh id and placed in the default group.
func NewBlock(doc *types.Document, kind types.BlockKind) (types.Block, error) {
	b := types.Block{
		UniqueID:  NewBlockID(doc),
		GroupName: types.DefaultGroupName,
		Kind:      kind,
	}
	b.DisplayName = b.UniqueID

	switch kind {
	case types.KindSwitch:
		b.Default = true
		b.Options = []types.OptionItem{
			{Key: "true", ExecUnits: []types.ExecUnit{}},
			{Key: "false", ExecUnits: []types.ExecUnit{}},
		}
	case types.KindOption:
		b.Default = "option1"
		b.Options = []types.OptionItem{{Key: "option1", ExecUnits: []types.ExecUnit{}}}
	case types.KindIntSlider:
		b.Default = float64(100)
		b.Range = types.Range{Min: 1, Max: 100, Step: 1}
		b.Targets = []types.XpathTarget{}
	case types.KindFloatSlider:
		b.Default = 1.0
		b.Range = types.Range{Min: 0.5, Max: 2.0, Step: 0.1}
		b.Targets = []types.XpathTarget{}
	default:
		return types.Block{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return b, nil
}

// AddBlock validates b and appends it to doc.
func AddBlock(doc *types.Document, b types.Block) error {
	if err := ValidateID(b.UniqueID); err != nil {
		return err
	}
	if err := CheckUnique(doc, b.UniqueID, -1); err != nil {
		return err
	}
	if err := ValidateBlock(&b); err != nil {
		return err
	}
	if b.GroupName == "" {
		b.GroupName = types.DefaultGroupName
	}
	if doc.Group(b.GroupName) == nil {
		return fmt.Errorf("%w: %s", ErrGroupMissing, b.GroupName)
	}
	doc.Configs = append(doc.Configs, b)
	return nil
}

// RemoveBlock deletes the block with the given id.
func RemoveBlock(doc *types.Document, id string) error {
	idx := indexOf(doc, id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	doc.Configs = append(doc.Configs[:idx], doc.Configs[idx+1:]...)
	return nil
}

// ValidateBlock checks the per-kind payload rules of b.
// Id rules are checked separately since they depend on the rest of the document.
func ValidateBlock(b *types.Block) error {
	switch b.Kind {
	case types.KindSwitch:
		return nil
	case types.KindOption:
		if len(b.Options) > 0 && b.Option(b.DefaultValue()) == nil {
			return fmt.Errorf("%w: %v", ErrDefaultOption, b.DefaultValue())
		}
		return nil
	case types.KindIntSlider, types.KindFloatSlider:
		r := b.Range
		if r.Min >= r.Max {
			return ErrRangeOrder
		}
		if r.Step <= 0 || r.Step >= r.Max {
			return ErrStepRange
		}
		def, _ := types.ToFloat(b.DefaultValue())
		if def < r.Min || def > r.Max {
			return fmt.Errorf("%w: %v not in [%v, %v]", ErrDefaultRange, def, r.Min, r.Max)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownKind, b.Kind)
}

// Problem is one validation finding of ValidateDocument.
type Problem struct {
	BlockID string `json:"blockId"`
	Err     error  `json:"-"`
	Message string `json:"message"`
}

// ValidateDocument runs the id and payload rules over every block and
// reports each failure. An empty result means the document is consistent.
func ValidateDocument(doc *types.Document) []Problem {
	var problems []Problem
	add := func(id string, err error) {
		problems = append(problems, Problem{BlockID: id, Err: err, Message: err.Error()})
	}
	for i := range doc.Configs {
		b := &doc.Configs[i]
		if err := ValidateID(b.UniqueID); err != nil {
			add(b.UniqueID, err)
		} else if err := CheckUnique(doc, b.UniqueID, i); err != nil {
			add(b.UniqueID, err)
		}
		if err := ValidateBlock(b); err != nil {
			add(b.UniqueID, err)
		}
		if doc.Group(b.GroupName) == nil {
			add(b.UniqueID, fmt.Errorf("%w: %s", ErrGroupMissing, b.GroupName))
		}
	}
	return problems
}
