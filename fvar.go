package font

import (
	"fmt"

	"github.com/tdewolff/parse/v2"
)

type fvarAxis struct {
	Tag               string
	Min, Default, Max float64
	Flags             uint16
	AxisNameID        uint16
}

type fvarInstance struct {
	SubfamilyNameID  uint16
	Coordinates      []float64
	PostScriptNameID uint16 // 0xFFFF if absent
}

type fvarTable struct {
	Axes      []fvarAxis
	Instances []fvarInstance
}

func (sfnt *SFNT) parseFvar() error {
	b, ok := sfnt.Tables["fvar"]
	if !ok {
		return fmt.Errorf("fvar: missing table")
	}
	r := parse.NewBinaryReaderBytes(b)
	if r.Len() < 16 {
		return newFontError(KindMalformedTable, "fvar", 0, "table too short")
	}

	majorVersion := r.ReadUint16()
	minorVersion := r.ReadUint16()
	if majorVersion != 1 || minorVersion != 0 {
		return newFontError(KindUnsupportedFormat, "fvar", 0, "bad version")
	}
	axesArrayOffset := r.ReadUint16()
	r.ReadUint16() // reserved
	axisCount := int(r.ReadUint16())
	axisSize := int(r.ReadUint16())
	instanceCount := int(r.ReadUint16())
	instanceSize := int(r.ReadUint16())
	if axisSize != 20 {
		return newFontError(KindMalformedTable, "fvar", 0, "bad axisSize")
	}

	r.Seek(int64(axesArrayOffset))
	axes := make([]fvarAxis, axisCount)
	for i := range axes {
		if r.Len() < int64(axisSize) {
			return newFontError(KindTruncated, "fvar", uint32(r.Pos()), "axis record")
		}
		tag := r.ReadString(4)
		axes[i] = fvarAxis{
			Tag:        tag,
			Min:        readFixed(r),
			Default:    readFixed(r),
			Max:        readFixed(r),
			Flags:      r.ReadUint16(),
			AxisNameID: r.ReadUint16(),
		}
	}

	hasPSNameID := instanceSize == 4*axisCount+6
	instances := make([]fvarInstance, 0, instanceCount)
	for i := 0; i < instanceCount; i++ {
		if r.Len() < int64(instanceSize) {
			return newFontError(KindTruncated, "fvar", uint32(r.Pos()), "instance record")
		}
		inst := fvarInstance{PostScriptNameID: 0xFFFF}
		inst.SubfamilyNameID = r.ReadUint16()
		r.ReadUint16() // flags, reserved
		inst.Coordinates = make([]float64, axisCount)
		for a := range inst.Coordinates {
			inst.Coordinates[a] = readFixed(r)
		}
		if hasPSNameID {
			inst.PostScriptNameID = r.ReadUint16()
		}
		instances = append(instances, inst)
	}

	sfnt.Fvar = &fvarTable{Axes: axes, Instances: instances}
	return nil
}

// AxisIndex returns the axis position for a 4-character axis tag such as "wght".
func (fvar *fvarTable) AxisIndex(tag string) (int, bool) {
	for i, axis := range fvar.Axes {
		if axis.Tag == tag {
			return i, true
		}
	}
	return 0, false
}

// Normalize turns user-space axis values into normalized [-1,1] coordinates,
// clamping to each axis' range and applying avar's segment maps when present.
func (fvar *fvarTable) Normalize(values map[string]float64, avar *avarTable) []float64 {
	coords := make([]float64, len(fvar.Axes))
	for i, axis := range fvar.Axes {
		v, ok := values[axis.Tag]
		if !ok {
			v = axis.Default
		}
		if v < axis.Min {
			v = axis.Min
		} else if axis.Max < v {
			v = axis.Max
		}

		var n float64
		switch {
		case v < axis.Default:
			if axis.Min == axis.Default {
				n = -1
			} else {
				n = -(axis.Default - v) / (axis.Default - axis.Min)
			}
		case axis.Default < v:
			if axis.Max == axis.Default {
				n = 1
			} else {
				n = (v - axis.Default) / (axis.Max - axis.Default)
			}
		}
		if avar != nil {
			n = avar.Map(i, n)
		}
		coords[i] = n
	}
	return coords
}
