package font

import (
	"fmt"

	"github.com/tdewolff/parse/v2"
)

type mvarRecord struct {
	Outer, Inner uint16
}

// mvarTable composes named font-wide metric deltas (underline position,
// x-height, cap height, and similar OS/2 and head style values) with the
// shared ItemVariationStore.
type mvarTable struct {
	Store   *itemVariationStore
	Records map[string]mvarRecord
}

func (sfnt *SFNT) parseMVAR() error {
	b, ok := sfnt.Tables["MVAR"]
	if !ok {
		return fmt.Errorf("MVAR: missing table")
	}
	r := parse.NewBinaryReaderBytes(b)
	if r.Len() < 12 {
		return newFontError(KindMalformedTable, "MVAR", 0, "table too short")
	}

	majorVersion := r.ReadUint16()
	minorVersion := r.ReadUint16()
	if majorVersion != 1 || minorVersion != 0 {
		return newFontError(KindUnsupportedFormat, "MVAR", 0, "bad version")
	}
	r.ReadUint16() // reserved
	valueRecordSize := r.ReadUint16()
	valueRecordCount := int(r.ReadUint16())
	itemVariationStoreOffset := uint32(r.ReadUint16())

	mvar := &mvarTable{Records: make(map[string]mvarRecord, valueRecordCount)}
	if itemVariationStoreOffset != 0 {
		if int64(len(b)) < int64(itemVariationStoreOffset) {
			return newFontError(KindMalformedTable, "MVAR", 0, "bad ItemVariationStore offset")
		}
		store, err := parseItemVariationStore(b[itemVariationStoreOffset:])
		if err != nil {
			return fmt.Errorf("MVAR: %w", err)
		}
		mvar.Store = store
	}

	for i := 0; i < valueRecordCount; i++ {
		if r.Len() < int64(valueRecordSize) {
			return newFontError(KindTruncated, "MVAR", uint32(r.Pos()), "value record")
		}
		tag := r.ReadString(4)
		outer := r.ReadUint16()
		inner := r.ReadUint16()
		if 8 < valueRecordSize {
			r.ReadBytes(int64(valueRecordSize) - 8)
		}
		mvar.Records[tag] = mvarRecord{Outer: outer, Inner: inner}
	}
	sfnt.MVAR = mvar
	return nil
}

// Delta returns the variation delta (in font design units) for a named
// metric tag such as "xhgt" or "undo", or 0 if MVAR does not vary it.
func (mvar *mvarTable) Delta(tag string, coords []float64) float64 {
	if mvar == nil || mvar.Store == nil {
		return 0
	}
	rec, ok := mvar.Records[tag]
	if !ok {
		return 0
	}
	return mvar.Store.Delta(rec.Outer, rec.Inner, coords)
}
