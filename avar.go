package font

import (
	"fmt"

	"github.com/tdewolff/parse/v2"
)

type avarSegmentPoint struct {
	From, To float64
}

// avarTable remaps normalized axis coordinates through a piecewise linear
// function per axis, refining fvar's default normalization.
type avarTable struct {
	Segments [][]avarSegmentPoint
}

func (sfnt *SFNT) parseAvar() error {
	b, ok := sfnt.Tables["avar"]
	if !ok {
		return fmt.Errorf("avar: missing table")
	} else if sfnt.Fvar == nil {
		return newFontError(KindMissingTable, "avar", 0, "fvar required")
	}
	r := parse.NewBinaryReaderBytes(b)
	if r.Len() < 8 {
		return newFontError(KindMalformedTable, "avar", 0, "table too short")
	}

	majorVersion := r.ReadUint16()
	minorVersion := r.ReadUint16()
	if majorVersion != 1 || minorVersion != 0 {
		return newFontError(KindUnsupportedFormat, "avar", 0, "bad version")
	}
	r.ReadUint16() // reserved
	axisCount := int(r.ReadUint16())
	if axisCount != len(sfnt.Fvar.Axes) {
		return newFontError(KindMalformedTable, "avar", 0, "axisCount does not match fvar")
	}

	segments := make([][]avarSegmentPoint, axisCount)
	for i := 0; i < axisCount; i++ {
		if r.Len() < 2 {
			return newFontError(KindTruncated, "avar", uint32(r.Pos()), "segment map")
		}
		count := int(r.ReadUint16())
		points := make([]avarSegmentPoint, count)
		for j := range points {
			points[j] = avarSegmentPoint{From: readF2Dot14(r), To: readF2Dot14(r)}
		}
		segments[i] = points
	}
	sfnt.Avar = &avarTable{Segments: segments}
	return nil
}

// avarHasRequiredAnchors checks for the (-1,-1), (0,0), (1,1) anchor points a
// segment map must carry to be considered valid.
func avarHasRequiredAnchors(points []avarSegmentPoint) bool {
	var hasNeg, hasZero, hasPos bool
	for _, p := range points {
		if p.From == -1 && p.To == -1 {
			hasNeg = true
		}
		if p.From == 0 && p.To == 0 {
			hasZero = true
		}
		if p.From == 1 && p.To == 1 {
			hasPos = true
		}
	}
	return hasNeg && hasZero && hasPos
}

// Map applies the axis' segment map to a normalized coordinate. Axes with no
// map, or a map missing the required anchor points, pass the value through.
func (avar *avarTable) Map(axisIndex int, v float64) float64 {
	if avar == nil || axisIndex < 0 || len(avar.Segments) <= axisIndex {
		return v
	}
	points := avar.Segments[axisIndex]
	if len(points) == 0 || !avarHasRequiredAnchors(points) {
		return v
	}
	if v <= points[0].From {
		return points[0].To
	}
	for i := 1; i < len(points); i++ {
		if v <= points[i].From {
			prev := points[i-1]
			cur := points[i]
			if cur.From == prev.From {
				return prev.To
			}
			t := (v - prev.From) / (cur.From - prev.From)
			return prev.To + t*(cur.To-prev.To)
		}
	}
	return points[len(points)-1].To
}
