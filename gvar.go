package font

import (
	"fmt"

	"github.com/tdewolff/parse/v2"
)

type gvarTupleVariation struct {
	Peak              []float64
	IntermediateStart []float64
	IntermediateEnd   []float64
	Points            []uint16 // nil means every point, including phantom points
	DeltaX, DeltaY    []int16
}

// gvarTable carries per-glyph TrueType outline deltas (including the four
// phantom points appended after a glyph's own points) for each axis region.
type gvarTable struct {
	AxisCount    int
	SharedTuples [][]float64
	glyphData    [][]byte
}

func (sfnt *SFNT) parseGvar() error {
	b, ok := sfnt.Tables["gvar"]
	if !ok {
		return fmt.Errorf("gvar: missing table")
	} else if sfnt.Fvar == nil {
		return newFontError(KindMissingTable, "gvar", 0, "fvar required")
	} else if sfnt.Maxp == nil {
		return newFontError(KindMissingTable, "gvar", 0, "maxp required")
	}
	r := parse.NewBinaryReaderBytes(b)
	if r.Len() < 20 {
		return newFontError(KindMalformedTable, "gvar", 0, "table too short")
	}

	majorVersion := r.ReadUint16()
	minorVersion := r.ReadUint16()
	if majorVersion != 1 || minorVersion != 0 {
		return newFontError(KindUnsupportedFormat, "gvar", 0, "bad version")
	}
	axisCount := int(r.ReadUint16())
	sharedTupleCount := int(r.ReadUint16())
	sharedTuplesOffset := r.ReadUint32()
	glyphCount := int(r.ReadUint16())
	flags := r.ReadUint16()
	dataArrayOffset := r.ReadUint32()

	if int(sfnt.Maxp.NumGlyphs) != glyphCount {
		return newFontError(KindMalformedTable, "gvar", 0, "glyphCount does not match maxp")
	}

	longOffsets := flags&0x1 != 0
	offsets := make([]uint32, glyphCount+1)
	for i := range offsets {
		if longOffsets {
			offsets[i] = r.ReadUint32()
		} else {
			offsets[i] = uint32(r.ReadUint16()) * 2
		}
	}

	if int64(len(b)) < int64(sharedTuplesOffset) {
		return newFontError(KindMalformedTable, "gvar", 0, "bad sharedTuplesOffset")
	}
	sr := parse.NewBinaryReaderBytes(b[sharedTuplesOffset:])
	sharedTuples := make([][]float64, sharedTupleCount)
	for i := range sharedTuples {
		tuple := make([]float64, axisCount)
		for a := range tuple {
			tuple[a] = readF2Dot14(sr)
		}
		sharedTuples[i] = tuple
	}

	glyphData := make([][]byte, glyphCount)
	for i := 0; i < glyphCount; i++ {
		start, end := offsets[i], offsets[i+1]
		if end < start || int64(len(b)) < int64(dataArrayOffset)+int64(end) {
			return newFontError(KindMalformedTable, "gvar", 0, "bad glyph variation data offset")
		}
		if start != end {
			glyphData[i] = b[dataArrayOffset+start : dataArrayOffset+end]
		}
	}

	sfnt.Gvar = &gvarTable{AxisCount: axisCount, SharedTuples: sharedTuples, glyphData: glyphData}
	return nil
}

func parsePackedPointNumbers(r *parse.BinaryReader) []uint16 {
	b0 := int(r.ReadUint8())
	if b0 == 0 {
		return nil
	}
	count := b0
	if b0&0x80 != 0 {
		b1 := int(r.ReadUint8())
		count = ((b0 & 0x7F) << 8) | b1
	}

	points := make([]uint16, 0, count)
	var last uint16
	for len(points) < count {
		control := r.ReadUint8()
		runCount := int(control&0x7F) + 1
		words := control&0x80 != 0
		for i := 0; i < runCount && len(points) < count; i++ {
			var delta uint16
			if words {
				delta = r.ReadUint16()
			} else {
				delta = uint16(r.ReadUint8())
			}
			last += delta
			points = append(points, last)
		}
	}
	return points
}

func parsePackedDeltas(r *parse.BinaryReader, count int) []int16 {
	deltas := make([]int16, 0, count)
	for len(deltas) < count {
		control := r.ReadUint8()
		runCount := int(control&0x3F) + 1
		switch {
		case control&0x80 != 0: // zero run
			for i := 0; i < runCount && len(deltas) < count; i++ {
				deltas = append(deltas, 0)
			}
		case control&0x40 != 0: // word deltas
			for i := 0; i < runCount && len(deltas) < count; i++ {
				deltas = append(deltas, r.ReadInt16())
			}
		default: // byte deltas
			for i := 0; i < runCount && len(deltas) < count; i++ {
				deltas = append(deltas, int16(r.ReadInt8()))
			}
		}
	}
	return deltas
}

func (gvar *gvarTable) parseGlyphVariationData(data []byte, total int) ([]gvarTupleVariation, error) {
	r := parse.NewBinaryReaderBytes(data)
	if r.Len() < 4 {
		return nil, fmt.Errorf("gvar: bad glyph variation data")
	}
	tupleCountAndFlags := r.ReadUint16()
	dataOffset := r.ReadUint16()
	hasSharedPoints := tupleCountAndFlags&0x8000 != 0
	count := int(tupleCountAndFlags & 0x0FFF)

	type header struct {
		embeddedPeak bool
		intermediate bool
		private      bool
		sharedIndex  int
		peak         []float64
		istart, iend []float64
	}
	headers := make([]header, 0, count)
	for i := 0; i < count; i++ {
		if r.Len() < 4 {
			return nil, fmt.Errorf("gvar: bad tuple variation header")
		}
		r.ReadUint16() // variationDataSize, recomputed implicitly by sequential reads below
		idx := r.ReadUint16()
		h := header{
			embeddedPeak: idx&0x8000 != 0,
			intermediate: idx&0x4000 != 0,
			private:      idx&0x2000 != 0,
			sharedIndex:  int(idx & 0x0FFF),
		}
		if h.embeddedPeak {
			h.peak = make([]float64, gvar.AxisCount)
			for a := range h.peak {
				h.peak[a] = readF2Dot14(r)
			}
		} else if h.sharedIndex < len(gvar.SharedTuples) {
			h.peak = gvar.SharedTuples[h.sharedIndex]
		}
		if h.intermediate {
			h.istart = make([]float64, gvar.AxisCount)
			h.iend = make([]float64, gvar.AxisCount)
			for a := range h.istart {
				h.istart[a] = readF2Dot14(r)
			}
			for a := range h.iend {
				h.iend[a] = readF2Dot14(r)
			}
		}
		headers = append(headers, h)
	}

	if int64(len(data)) < int64(dataOffset) {
		return nil, fmt.Errorf("gvar: bad serialized data offset")
	}
	sr := parse.NewBinaryReaderBytes(data[dataOffset:])

	var sharedPoints []uint16
	sharedPointsSet := false
	if hasSharedPoints {
		sharedPoints = parsePackedPointNumbers(sr)
		sharedPointsSet = true
	}

	tuples := make([]gvarTupleVariation, 0, count)
	for _, h := range headers {
		var points []uint16
		if h.private {
			points = parsePackedPointNumbers(sr)
		} else if sharedPointsSet {
			points = sharedPoints
		}

		n := total
		if points != nil {
			n = len(points)
		}
		dx := parsePackedDeltas(sr, n)
		dy := parsePackedDeltas(sr, n)
		tuples = append(tuples, gvarTupleVariation{
			Peak:              h.peak,
			IntermediateStart: h.istart,
			IntermediateEnd:   h.iend,
			Points:            points,
			DeltaX:            dx,
			DeltaY:            dy,
		})
	}
	return tuples, nil
}

func gvarTupleScalar(tup gvarTupleVariation, axisCount int, coords []float64) float64 {
	scalar := 1.0
	for i := 0; i < axisCount; i++ {
		var peak float64
		if i < len(tup.Peak) {
			peak = tup.Peak[i]
		}
		if peak == 0 {
			continue
		}
		var start, end float64
		if tup.IntermediateStart != nil && i < len(tup.IntermediateStart) {
			start, end = tup.IntermediateStart[i], tup.IntermediateEnd[i]
		} else if 0 < peak {
			start, end = 0, peak
		} else {
			start, end = peak, 0
		}
		var c float64
		if i < len(coords) {
			c = coords[i]
		}
		s := tupleScalar(start, peak, end, c)
		if s == 0 {
			return 0
		}
		scalar *= s
	}
	return scalar
}

// Deltas returns per-point (dx, dy) deltas for a glyph with numPoints real
// points, at the given normalized coordinates. The returned slices have
// numPoints+4 entries, the last four being the phantom points (left side
// bearing, advance width, top side bearing, advance height).
func (gvar *gvarTable) Deltas(glyphID uint16, numPoints int, coords []float64) ([]float64, []float64, bool) {
	if gvar == nil || int(glyphID) >= len(gvar.glyphData) {
		return nil, nil, false
	}
	data := gvar.glyphData[glyphID]
	if len(data) == 0 {
		return nil, nil, false
	}

	total := numPoints + 4
	tuples, err := gvar.parseGlyphVariationData(data, total)
	if err != nil {
		return nil, nil, false
	}

	dx := make([]float64, total)
	dy := make([]float64, total)
	for _, tup := range tuples {
		scalar := gvarTupleScalar(tup, gvar.AxisCount, coords)
		if scalar == 0 {
			continue
		}
		if tup.Points == nil {
			for i := 0; i < total && i < len(tup.DeltaX); i++ {
				dx[i] += scalar * float64(tup.DeltaX[i])
				dy[i] += scalar * float64(tup.DeltaY[i])
			}
		} else {
			for i, pt := range tup.Points {
				if int(pt) < total && i < len(tup.DeltaX) {
					dx[pt] += scalar * float64(tup.DeltaX[i])
					dy[pt] += scalar * float64(tup.DeltaY[i])
				}
			}
		}
	}
	return dx, dy, true
}
