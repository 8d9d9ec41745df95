package font

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
)

// Specification:
// https://www.w3.org/TR/WOFF/

type woffTable struct {
	tag          string
	offset       uint32
	compLength   uint32
	origLength   uint32
	origChecksum uint32
	data         []byte
}

// ParseWOFF parses the WOFF font format and returns its contained SFNT font
// format (TTF or OTF). Unlike WOFF2, each table carries its own independent
// zlib stream rather than sharing one combined compressed blob. See
// https://www.w3.org/TR/WOFF/
func ParseWOFF(b []byte) ([]byte, error) {
	if len(b) < 44 {
		return nil, ErrInvalidFontData
	}

	r := NewBinaryReader(b)
	signature := r.ReadString(4)
	if signature != "wOFF" {
		return nil, fmt.Errorf("bad signature")
	}
	flavor := r.ReadUint32()
	length := r.ReadUint32()
	numTables := r.ReadUint16()
	reserved := r.ReadUint16()
	totalSfntSize := r.ReadUint32()
	_ = r.ReadUint16() // majorVersion
	_ = r.ReadUint16() // minorVersion
	_ = r.ReadUint32() // metaOffset
	_ = r.ReadUint32() // metaLength
	_ = r.ReadUint32() // metaOrigLength
	_ = r.ReadUint32() // privOffset
	_ = r.ReadUint32() // privLength
	if r.EOF() {
		return nil, ErrInvalidFontData
	} else if length != uint32(len(b)) {
		return nil, fmt.Errorf("length in header must match file size")
	} else if numTables == 0 {
		return nil, fmt.Errorf("numTables in header must not be zero")
	} else if reserved != 0 {
		return nil, fmt.Errorf("reserved in header must be zero")
	}

	tags := []string{}
	tagTableIndex := map[string]int{}
	tables := []woffTable{}
	for i := 0; i < int(numTables); i++ {
		tag := uint32ToString(r.ReadUint32())
		offset := r.ReadUint32()
		compLength := r.ReadUint32()
		origLength := r.ReadUint32()
		origChecksum := r.ReadUint32()
		if r.EOF() {
			return nil, ErrInvalidFontData
		}
		if origLength < compLength {
			return nil, fmt.Errorf("%s: compLength must not exceed origLength", tag)
		}
		if uint32(len(b))-offset < compLength || uint32(len(b)) < offset {
			return nil, ErrInvalidFontData
		}
		if _, ok := tagTableIndex[tag]; ok {
			return nil, fmt.Errorf("%s: table defined more than once", tag)
		}

		tags = append(tags, tag)
		tagTableIndex[tag] = len(tables)
		tables = append(tables, woffTable{
			tag:          tag,
			offset:       offset,
			compLength:   compLength,
			origLength:   origLength,
			origChecksum: origChecksum,
		})
	}

	var uncompressedSize uint32
	for i := range tables {
		if math.MaxUint32-uncompressedSize < tables[i].origLength {
			return nil, ErrInvalidFontData
		}
		uncompressedSize += tables[i].origLength
	}
	if MaxMemory < uncompressedSize {
		return nil, ErrExceedsMemory
	}

	for i := range tables {
		raw := b[tables[i].offset : tables[i].offset+tables[i].compLength]
		if tables[i].compLength == tables[i].origLength {
			tables[i].data = raw
			continue
		}
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, wrapFontError(KindDeflateError, tables[i].tag, err)
		}
		buf := bytes.NewBuffer(make([]byte, 0, tables[i].origLength))
		if _, err := io.Copy(buf, zr); err != nil {
			return nil, wrapFontError(KindDeflateError, tables[i].tag, err)
		}
		if err := zr.Close(); err != nil {
			return nil, wrapFontError(KindDeflateError, tables[i].tag, err)
		}
		if uint32(buf.Len()) != tables[i].origLength {
			return nil, fmt.Errorf("%s: origLength does not match decompressed size", tables[i].tag)
		}
		tables[i].data = buf.Bytes()
	}

	iHead, hasHead := tagTableIndex["head"]
	if !hasHead || len(tables[iHead].data) < 18 {
		return nil, fmt.Errorf("head: must be present")
	}
	binary.BigEndian.PutUint32(tables[iHead].data[8:], 0x00000000) // clear checkSumAdjustment

	if _, hasDSIG := tagTableIndex["DSIG"]; hasDSIG {
		return nil, fmt.Errorf("DSIG: must be removed")
	}

	var searchRange uint16 = 1
	var entrySelector uint16
	var rangeShift uint16
	for {
		if searchRange*2 > numTables {
			break
		}
		searchRange *= 2
		entrySelector++
	}
	searchRange *= 16
	rangeShift = numTables*16 - searchRange

	if MaxMemory < totalSfntSize {
		return nil, ErrExceedsMemory
	}
	w := NewBinaryWriter(make([]byte, 0, totalSfntSize))
	w.WriteUint32(flavor)
	w.WriteUint16(numTables)
	w.WriteUint16(searchRange)
	w.WriteUint16(entrySelector)
	w.WriteUint16(rangeShift)

	sort.Strings(tags)
	sfntOffset := 12 + 16*uint32(numTables)
	for _, tag := range tags {
		i := tagTableIndex[tag]
		actualLength := uint32(len(tables[i].data))

		nPadding := (4 - actualLength&3) & 3
		if math.MaxUint32-actualLength < nPadding || math.MaxUint32-actualLength-nPadding < sfntOffset {
			return nil, ErrInvalidFontData
		}
		for j := 0; j < int(nPadding); j++ {
			tables[i].data = append(tables[i].data, 0x00)
		}

		w.WriteUint32(binary.BigEndian.Uint32([]byte(tables[i].tag)))
		w.WriteUint32(calcChecksum(tables[i].data))
		w.WriteUint32(sfntOffset)
		w.WriteUint32(actualLength)
		sfntOffset += uint32(len(tables[i].data))
	}

	var iCheckSumAdjustment uint32
	for _, tag := range tags {
		if tag == "head" {
			iCheckSumAdjustment = w.Len() + 8
		}
		w.WriteBytes(tables[tagTableIndex[tag]].data)
	}

	buf := w.Bytes()
	checkSumAdjustment := 0xB1B0AFBA - calcChecksum(buf)
	binary.BigEndian.PutUint32(buf[iCheckSumAdjustment:], checkSumAdjustment)
	return buf, nil
}

// WriteWOFF converts the SFNT font to the WOFF font format, zlib-compressing
// each table independently and skipping the compressed form when it would not
// be smaller than the original table.
func (sfnt *SFNT) WriteWOFF() ([]byte, error) {
	tags := make([]string, 0, len(sfnt.Tables))
	for tag := range sfnt.Tables {
		if tag == "DSIG" {
			continue // exclude DSIG table
		}
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	type entry struct {
		tag          string
		origLength   uint32
		origChecksum uint32
		data         []byte // zlib-compressed, or a copy of the raw table
	}
	entries := make([]entry, 0, len(tags))
	for _, tag := range tags {
		raw := sfnt.Tables[tag]

		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(raw); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}

		e := entry{tag: tag, origLength: uint32(len(raw)), origChecksum: calcChecksum(padTable(raw))}
		if buf.Len() < len(raw) {
			e.data = buf.Bytes()
		} else {
			e.data = append([]byte{}, raw...)
		}
		entries = append(entries, e)
	}

	numTables := uint16(len(entries))
	headerLength := uint32(44 + 20*len(entries))
	w := NewBinaryWriter(make([]byte, 0, headerLength))
	w.WriteString("wOFF")
	w.WriteString(sfnt.Version) // flavor
	w.WriteUint32(0)            // length, patched below
	w.WriteUint16(numTables)
	w.WriteUint16(0) // reserved
	w.WriteUint32(sfnt.Length)
	w.WriteUint16(1) // majorVersion
	w.WriteUint16(0) // minorVersion
	w.WriteUint32(0) // metaOffset
	w.WriteUint32(0) // metaLength
	w.WriteUint32(0) // metaOrigLength
	w.WriteUint32(0) // privOffset
	w.WriteUint32(0) // privLength

	offset := headerLength
	for _, e := range entries {
		w.WriteString(e.tag)
		w.WriteUint32(offset)
		w.WriteUint32(uint32(len(e.data)))
		w.WriteUint32(e.origLength)
		w.WriteUint32(e.origChecksum)
		offset += uint32(len(e.data))
		nPadding := (4 - offset&3) & 3
		offset += nPadding
	}
	for _, e := range entries {
		w.WriteBytes(e.data)
		nPadding := (4 - uint32(len(e.data))&3) & 3
		for i := uint32(0); i < nPadding; i++ {
			w.WriteByte(0x00)
		}
	}

	buf := w.Bytes()
	binary.BigEndian.PutUint32(buf[8:], uint32(len(buf)))
	return buf, nil
}

// padTable returns a copy of b zero-padded to a multiple of 4 bytes, matching
// how the SFNT directory pads tables before computing their checksum.
func padTable(b []byte) []byte {
	if len(b)%4 == 0 {
		return b
	}
	padded := make([]byte, (len(b)+3)&^3)
	copy(padded, b)
	return padded
}

