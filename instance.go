package font

import "fmt"

// Instance is a resolved point in a variable font's design space: the
// user-supplied axis values together with their normalized coordinates.
type Instance struct {
	sfnt   *SFNT
	Coords []float64
	Values map[string]float64
}

// InstanceBuilder accumulates axis values before resolving them into an
// Instance via Build.
type InstanceBuilder struct {
	sfnt   *SFNT
	values map[string]float64
}

// NewInstanceBuilder starts building a variation instance for this font.
// Axes left unset default to their fvar default value.
func (sfnt *SFNT) NewInstanceBuilder() *InstanceBuilder {
	return &InstanceBuilder{sfnt: sfnt, values: map[string]float64{}}
}

// Set assigns a user-space value to a 4-character axis tag, such as "wght"
// or "ital". Unknown tags are rejected at Build time, not here, so calls can
// be chained freely.
func (b *InstanceBuilder) Set(axisTag string, value float64) *InstanceBuilder {
	b.values[axisTag] = value
	return b
}

// Reset clears a value previously set for axisTag, so that the axis falls
// back to its fvar default value at Build time.
func (b *InstanceBuilder) Reset(axisTag string) *InstanceBuilder {
	delete(b.values, axisTag)
	return b
}

// Build resolves the accumulated axis values into an Instance, normalizing
// them through fvar and, if present, avar.
func (b *InstanceBuilder) Build() (*Instance, error) {
	if b.sfnt.Fvar == nil {
		return nil, fmt.Errorf("font: no fvar table, cannot build a variation instance")
	}
	for tag := range b.values {
		if _, ok := b.sfnt.Fvar.AxisIndex(tag); !ok {
			return nil, fmt.Errorf("font: unknown variation axis %q", tag)
		}
	}
	coords := b.sfnt.Fvar.Normalize(b.values, b.sfnt.Avar)
	values := make(map[string]float64, len(b.values))
	for tag, v := range b.values {
		values[tag] = v
	}
	return &Instance{sfnt: b.sfnt, Coords: coords, Values: values}, nil
}

// SetInstance activates a variation instance, so that subsequent outline and
// advance queries apply its deltas. Pass nil to return to the font's default,
// unvaried state.
func (sfnt *SFNT) SetInstance(instance *Instance) {
	sfnt.instance = instance
	var coords []float64
	if instance != nil {
		coords = instance.Coords
	}
	if sfnt.Glyf != nil {
		sfnt.Glyf.gvar = sfnt.Gvar
		sfnt.Glyf.coords = coords
	}
	if sfnt.CFF != nil {
		sfnt.CFF.coords = coords
	}
}
