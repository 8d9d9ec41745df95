package font

import (
	"fmt"

	"github.com/tdewolff/parse/v2"
)

// readF2Dot14 reads a 2.14 fixed-point value, used throughout the variation
// tables for normalized axis coordinates.
func readF2Dot14(r *parse.BinaryReader) float64 {
	return float64(r.ReadInt16()) / 16384.0
}

// readFixed reads a 16.16 fixed-point value.
func readFixed(r *parse.BinaryReader) float64 {
	return float64(r.ReadInt32()) / 65536.0
}

// tupleScalar computes the contribution of a single axis to a region scalar,
// given the region's (start, peak, end) and the normalized coordinate c.
func tupleScalar(start, peak, end, c float64) float64 {
	if peak == 0 {
		return 1
	}
	lo, hi := start, end
	if hi < lo {
		lo, hi = hi, lo
	}
	if c < lo || c > hi {
		return 0
	}
	if c == peak {
		return 1
	}
	if c < peak {
		if start == peak {
			return 1
		}
		return (c - start) / (peak - start)
	}
	if end == peak {
		return 1
	}
	return (end - c) / (end - peak)
}

// ivsRegionAxis is one axis' (start, peak, end) triple within a variation region.
type ivsRegionAxis struct {
	Start, Peak, End float64
}

type ivsRegion struct {
	Axes []ivsRegionAxis
}

// regionScalar is the product of every axis' tupleScalar for a region, given
// a vector of normalized coordinates (missing axes default to 0).
func regionScalar(axes []ivsRegionAxis, coords []float64) float64 {
	scalar := 1.0
	for i, axis := range axes {
		var c float64
		if i < len(coords) {
			c = coords[i]
		}
		s := tupleScalar(axis.Start, axis.Peak, axis.End, c)
		if s == 0 {
			return 0
		}
		scalar *= s
	}
	return scalar
}

type itemVariationData struct {
	RegionIndexes []uint16
	DeltaSets     [][]int32 // [itemIndex][regionIndex]
}

// itemVariationStore is the shared delta store referenced by CFF2 charstrings
// (vsindex/blend), HVAR, VVAR, and MVAR.
type itemVariationStore struct {
	Regions []ivsRegion
	Datas   []itemVariationData
}

func parseItemVariationStore(b []byte) (*itemVariationStore, error) {
	r := parse.NewBinaryReaderBytes(b)
	if r.Len() < 8 {
		return nil, fmt.Errorf("ItemVariationStore: bad table")
	}
	format := r.ReadUint16()
	if format != 1 {
		return nil, fmt.Errorf("ItemVariationStore: unsupported format %d", format)
	}
	regionListOffset := r.ReadUint32()
	dataCount := r.ReadUint16()
	dataOffsets := make([]uint32, dataCount)
	for i := range dataOffsets {
		dataOffsets[i] = r.ReadUint32()
	}

	if int64(regionListOffset) < 0 || int64(len(b)) < int64(regionListOffset)+4 {
		return nil, fmt.Errorf("ItemVariationStore: bad region list offset")
	}
	rr := parse.NewBinaryReaderBytes(b[regionListOffset:])
	axisCount := int(rr.ReadUint16())
	regionCount := int(rr.ReadUint16())
	regions := make([]ivsRegion, regionCount)
	for i := range regions {
		axes := make([]ivsRegionAxis, axisCount)
		for a := range axes {
			axes[a] = ivsRegionAxis{
				Start: readF2Dot14(rr),
				Peak:  readF2Dot14(rr),
				End:   readF2Dot14(rr),
			}
		}
		regions[i] = ivsRegion{Axes: axes}
	}

	datas := make([]itemVariationData, dataCount)
	for i, offset := range dataOffsets {
		if int64(len(b)) < int64(offset)+4 {
			return nil, fmt.Errorf("ItemVariationStore: bad item variation data offset")
		}
		dr := parse.NewBinaryReaderBytes(b[offset:])
		itemCount := int(dr.ReadUint16())
		shortDeltaCount := int(dr.ReadUint16())
		regionIndexCount := int(dr.ReadUint16())
		regionIndexes := make([]uint16, regionIndexCount)
		for j := range regionIndexes {
			regionIndexes[j] = dr.ReadUint16()
		}
		deltaSets := make([][]int32, itemCount)
		for it := 0; it < itemCount; it++ {
			deltas := make([]int32, regionIndexCount)
			for j := 0; j < regionIndexCount; j++ {
				if j < shortDeltaCount {
					deltas[j] = int32(dr.ReadInt16())
				} else {
					deltas[j] = int32(int8(dr.ReadUint8()))
				}
			}
			deltaSets[it] = deltas
		}
		datas[i] = itemVariationData{RegionIndexes: regionIndexes, DeltaSets: deltaSets}
	}
	return &itemVariationStore{Regions: regions, Datas: datas}, nil
}

// Delta computes the accumulated delta for (outer, inner) at the given
// normalized coordinates.
func (ivs *itemVariationStore) Delta(outer, inner uint16, coords []float64) float64 {
	if ivs == nil || int(outer) >= len(ivs.Datas) {
		return 0
	}
	data := ivs.Datas[outer]
	if int(inner) >= len(data.DeltaSets) {
		return 0
	}
	deltas := data.DeltaSets[inner]
	sum := 0.0
	for r, regionIdx := range data.RegionIndexes {
		if int(regionIdx) >= len(ivs.Regions) || r >= len(deltas) {
			continue
		}
		scalar := regionScalar(ivs.Regions[regionIdx].Axes, coords)
		if scalar == 0 {
			continue
		}
		sum += scalar * float64(deltas[r])
	}
	return sum
}

// deltaSetIndexMap resolves a glyph id or value tag into an (outer, inner)
// pair addressing an itemVariationStore, per the DeltaSetIndexMap format used
// by HVAR, VVAR, and MVAR.
type deltaSetIndexMap struct {
	entries []struct{ Outer, Inner uint16 }
}

func parseDeltaSetIndexMap(r *parse.BinaryReader) (*deltaSetIndexMap, error) {
	if r.Len() < 4 {
		return nil, fmt.Errorf("DeltaSetIndexMap: bad table")
	}
	format := r.ReadUint8()
	entryFormat := r.ReadUint8()
	var mapCount uint32
	switch format {
	case 0:
		mapCount = uint32(r.ReadUint16())
	case 1:
		mapCount = r.ReadUint32()
	default:
		return nil, fmt.Errorf("DeltaSetIndexMap: bad format %d", format)
	}

	entrySize := int((entryFormat>>4)&0x3) + 1
	innerBits := uint((entryFormat & 0xF)) + 1
	m := &deltaSetIndexMap{entries: make([]struct{ Outer, Inner uint16 }, mapCount)}
	for i := uint32(0); i < mapCount; i++ {
		var entry uint32
		switch entrySize {
		case 1:
			entry = uint32(r.ReadUint8())
		case 2:
			entry = uint32(r.ReadUint16())
		case 3:
			entry = readUint24(r)
		case 4:
			entry = r.ReadUint32()
		}
		m.entries[i].Inner = uint16(entry & ((uint32(1) << innerBits) - 1))
		m.entries[i].Outer = uint16(entry >> innerBits)
	}
	return m, nil
}

// Get returns the (outer, inner) pair for a logical id. Ids beyond the map's
// range resolve to the map's last entry, per the OpenType variation spec.
func (m *deltaSetIndexMap) Get(id uint16) (outer, inner uint16) {
	if m == nil || len(m.entries) == 0 {
		return 0, id
	}
	if int(id) >= len(m.entries) {
		id = uint16(len(m.entries) - 1)
	}
	e := m.entries[id]
	return e.Outer, e.Inner
}
