package font

import "encoding/binary"

// MediaType sniffs the container format of b and returns its IANA media type
// (eg. "font/woff2") and whether the format was recognized at all.
func MediaType(b []byte) (string, bool) {
	if 4 <= len(b) {
		switch uint32ToString(binary.BigEndian.Uint32(b)) {
		case "wOF2":
			return "font/woff2", true
		case "wOFF":
			return "font/woff", true
		case "ttcf":
			return "font/truetype", true
		case "OTTO":
			return "font/opentype", true
		case "true", "typ1":
			return "font/truetype", true
		}
		if binary.BigEndian.Uint32(b) == 0x00010000 {
			return "font/truetype", true
		}
	}
	if isEOT(b) {
		return "font/eot", true
	}
	return "", false
}

// isEOT reports whether b looks like an Embedded OpenType font: EOT carries
// no tag at offset zero, so detection instead checks the fixed-offset Version
// and MagicNumber fields every EOT header variant shares.
func isEOT(b []byte) bool {
	if len(b) < 36 {
		return false
	}
	version := binary.LittleEndian.Uint32(b[8:])
	if version != 0x00010000 && version != 0x00020001 && version != 0x00020002 {
		return false
	}
	magicNumber := binary.LittleEndian.Uint16(b[34:])
	return magicNumber == 0x504C
}

// ToSFNT normalizes b to raw SFNT (TTF/OTF/TTC) bytes, unwrapping a WOFF,
// WOFF2, or EOT container if present. Data already in SFNT form is returned
// unchanged.
func ToSFNT(b []byte) ([]byte, error) {
	mimetype, ok := MediaType(b)
	if !ok {
		return nil, ErrInvalidFontData
	}
	switch mimetype {
	case "font/woff2":
		return ParseWOFF2(b)
	case "font/woff":
		return ParseWOFF(b)
	case "font/eot":
		return ParseEOT(b)
	default:
		return b, nil
	}
}
