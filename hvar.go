package font

import (
	"fmt"

	"github.com/tdewolff/parse/v2"
)

// metricsVariationTable is the shared layout of HVAR and VVAR: an
// ItemVariationStore plus optional DeltaSetIndexMaps for advance, and
// (for VVAR) vertical origin, corrections. The core only exercises the
// advance width/height mapping, as no outline operation needs side bearing
// variation once HVAR/VVAR supply the advance.
type metricsVariationTable struct {
	Store      *itemVariationStore
	AdvanceMap *deltaSetIndexMap
}

func parseMetricsVariationTable(tag string, b []byte) (*metricsVariationTable, error) {
	r := parse.NewBinaryReaderBytes(b)
	if r.Len() < 20 {
		return nil, newFontError(KindMalformedTable, tag, 0, "table too short")
	}
	majorVersion := r.ReadUint16()
	minorVersion := r.ReadUint16()
	if majorVersion != 1 || minorVersion != 0 {
		return nil, newFontError(KindUnsupportedFormat, tag, 0, "bad version")
	}
	itemVariationStoreOffset := r.ReadUint32()
	advanceWidthMappingOffset := r.ReadUint32()

	t := &metricsVariationTable{}
	if itemVariationStoreOffset != 0 {
		if int64(len(b)) < int64(itemVariationStoreOffset) {
			return nil, newFontError(KindMalformedTable, tag, 0, "bad ItemVariationStore offset")
		}
		store, err := parseItemVariationStore(b[itemVariationStoreOffset:])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", tag, err)
		}
		t.Store = store
	}
	if advanceWidthMappingOffset != 0 {
		if int64(len(b)) < int64(advanceWidthMappingOffset) {
			return nil, newFontError(KindMalformedTable, tag, 0, "bad advance mapping offset")
		}
		mr := parse.NewBinaryReaderBytes(b[advanceWidthMappingOffset:])
		m, err := parseDeltaSetIndexMap(mr)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", tag, err)
		}
		t.AdvanceMap = m
	}
	return t, nil
}

func (sfnt *SFNT) parseHVAR() error {
	b, ok := sfnt.Tables["HVAR"]
	if !ok {
		return fmt.Errorf("HVAR: missing table")
	}
	t, err := parseMetricsVariationTable("HVAR", b)
	if err != nil {
		return err
	}
	sfnt.HVAR = t
	return nil
}

func (sfnt *SFNT) parseVVAR() error {
	b, ok := sfnt.Tables["VVAR"]
	if !ok {
		return fmt.Errorf("VVAR: missing table")
	}
	t, err := parseMetricsVariationTable("VVAR", b)
	if err != nil {
		return err
	}
	sfnt.VVAR = t
	return nil
}

// AdvanceDelta returns the variation delta (in font units) to apply to a
// glyph's advance. When the map is absent, the glyph id addresses the store
// directly under outer index 0, per the OpenType HVAR/VVAR identity case.
func (t *metricsVariationTable) AdvanceDelta(glyphID uint16, coords []float64) float64 {
	if t == nil || t.Store == nil {
		return 0
	}
	outer, inner := uint16(0), glyphID
	if t.AdvanceMap != nil {
		outer, inner = t.AdvanceMap.Get(glyphID)
	}
	return t.Store.Delta(outer, inner, coords)
}
