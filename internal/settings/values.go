package settings

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/flexmod/flexmod/pkg/types"
)

var (
	ErrUnknownBlock = errors.New("unknown block")
	ErrInvalidValue = errors.New("invalid value")
	ErrOutOfRange   = errors.New("value out of range")
)

// Coerce parses a textual value for b. Switches take true/false, dropdowns
// one of their option keys, sliders a number inside the range. Float
// sliders are rounded to the precision of their step.
func Coerce(b *types.Block, raw string) (types.Value, error) {
	raw = strings.TrimSpace(raw)
	switch b.Kind {
	case types.KindSwitch:
		v, ok := types.ToBool(raw)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not true or false", ErrInvalidValue, raw)
		}
		return v, nil
	case types.KindOption:
		opt := b.Option(raw)
		if opt == nil {
			return nil, fmt.Errorf("%w: %q is not an option of %s", ErrInvalidValue, raw, b.UniqueID)
		}
		return opt.Key, nil
	case types.KindIntSlider, types.KindFloatSlider:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, raw)
		}
		return sliderValue(b, f)
	}
	return nil, fmt.Errorf("%w: block kind %q", ErrInvalidValue, b.Kind)
}

// CoerceValue is Coerce for values that arrive typed, as from a JSON body.
func CoerceValue(b *types.Block, v types.Value) (types.Value, error) {
	if s, ok := v.(string); ok {
		return Coerce(b, s)
	}
	switch b.Kind {
	case types.KindSwitch:
		if bv, ok := v.(bool); ok {
			return bv, nil
		}
	case types.KindIntSlider, types.KindFloatSlider:
		if f, ok := types.ToFloat(v); ok {
			return sliderValue(b, f)
		}
	}
	return Coerce(b, types.FormatValue(v))
}

func sliderValue(b *types.Block, f float64) (types.Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, f)
	}
	if b.Kind == types.KindIntSlider {
		f = math.Round(f)
	} else {
		p := math.Pow(10, float64(b.Decimals()))
		f = math.Round(f*p) / p
	}
	if f < b.Range.Min || f > b.Range.Max {
		return nil, fmt.Errorf("%w: %v not in [%v, %v]", ErrOutOfRange, f, b.Range.Min, b.Range.Max)
	}
	return f, nil
}

// SetValue stores a coerced value for the block id in the final settings.
// The id keeps its position in the apply order.
func SetValue(ps *types.PlayerSettings, doc *types.Document, id string, v types.Value) (types.Value, error) {
	b := doc.Block(id)
	if b == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBlock, id)
	}
	coerced, err := CoerceValue(b, v)
	if err != nil {
		return nil, err
	}
	ps.EnsureMaps()
	ps.FinalSettings.Set(id, coerced)
	if _, ok := ps.DefaultValues.Get(id); !ok {
		ps.DefaultValues.Set(id, b.DefaultValue())
	}
	return coerced, nil
}

// SetValues stores every value of values as SetValue does, or none of them:
// the first invalid value aborts the batch and leaves ps untouched. It
// returns the ids whose stored value changed.
func SetValues(ps *types.PlayerSettings, doc *types.Document, values *types.ValueMap) ([]string, error) {
	ps.EnsureMaps()
	staged := &types.PlayerSettings{
		FinalSettings: types.CopyValues(ps.FinalSettings),
		DefaultValues: types.CopyValues(ps.DefaultValues),
		Presets:       ps.Presets,
	}

	var changed []string
	for pair := values.Oldest(); pair != nil; pair = pair.Next() {
		before, _ := staged.FinalSettings.Get(pair.Key)
		v, err := SetValue(staged, doc, pair.Key, pair.Value)
		if err != nil {
			return nil, err
		}
		if !types.ValuesEqual(before, v) {
			changed = appendUnique(changed, pair.Key)
		}
	}

	ps.FinalSettings = staged.FinalSettings
	ps.DefaultValues = staged.DefaultValues
	return changed, nil
}
