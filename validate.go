package font

import "fmt"

// Severity classifies how serious a validation finding is.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return "unknown"
}

// ValidationWarning is a single finding from Validate, with enough context
// (table tag, severity) to triage without re-walking the font.
type ValidationWarning struct {
	Severity Severity
	Tag      string
	Detail   string
}

func (w ValidationWarning) String() string {
	if w.Tag == "" {
		return fmt.Sprintf("%s: %s", w.Severity, w.Detail)
	}
	return fmt.Sprintf("%s [%s]: %s", w.Severity, w.Tag, w.Detail)
}

// ValidationResult is the outcome of Validate: every finding plus a terminal
// pass/fail boolean (false if any finding is SeverityError).
type ValidationResult struct {
	Warnings []ValidationWarning
	OK       bool
}

func (r *ValidationResult) add(severity Severity, tag, format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, ValidationWarning{
		Severity: severity,
		Tag:      tag,
		Detail:   fmt.Sprintf(format, args...),
	})
	if severity == SeverityError {
		r.OK = false
	}
}

// Validate walks the parsed tables checking cross-table consistency that a
// single table's own parser cannot see: glyph counts, metric counts, and
// offsets that only make sense together. It never fails on its own account;
// a font that failed to parse never reaches Validate.
func (sfnt *SFNT) Validate() *ValidationResult {
	result := &ValidationResult{OK: true}

	if sfnt.Head == nil {
		result.add(SeverityError, "head", "missing")
	} else if sfnt.Head.UnitsPerEm < 16 || 16384 < sfnt.Head.UnitsPerEm {
		result.add(SeverityWarning, "head", "unitsPerEm %d outside the recommended [16,16384] range", sfnt.Head.UnitsPerEm)
	}

	if sfnt.Maxp == nil {
		result.add(SeverityError, "maxp", "missing")
		return result
	}
	numGlyphs := sfnt.Maxp.NumGlyphs

	if sfnt.Hhea != nil && sfnt.Hmtx != nil {
		if uint16(len(sfnt.Hmtx.HMetrics)) != sfnt.Hhea.NumberOfHMetrics {
			result.add(SeverityError, "hmtx", "long metric count %d does not match hhea.numberOfHMetrics %d",
				len(sfnt.Hmtx.HMetrics), sfnt.Hhea.NumberOfHMetrics)
		}
		wantShort := numGlyphs - sfnt.Hhea.NumberOfHMetrics
		if sfnt.Hhea.NumberOfHMetrics <= numGlyphs && uint16(len(sfnt.Hmtx.LeftSideBearings)) != wantShort {
			result.add(SeverityError, "hmtx", "trailing left side bearing count %d does not match maxp.numGlyphs-hhea.numberOfHMetrics %d",
				len(sfnt.Hmtx.LeftSideBearings), wantShort)
		} else if numGlyphs < sfnt.Hhea.NumberOfHMetrics {
			result.add(SeverityError, "hhea", "numberOfHMetrics %d exceeds maxp.numGlyphs %d", sfnt.Hhea.NumberOfHMetrics, numGlyphs)
		}
	}

	if sfnt.Vhea != nil && sfnt.Vmtx != nil {
		wantShort := numGlyphs - sfnt.Vhea.NumberOfVMetrics
		if sfnt.Vhea.NumberOfVMetrics <= numGlyphs && uint16(len(sfnt.Vmtx.TopSideBearings)) != wantShort {
			result.add(SeverityError, "vmtx", "trailing top side bearing count %d does not match maxp.numGlyphs-vhea.numberOfVMetrics %d",
				len(sfnt.Vmtx.TopSideBearings), wantShort)
		}
	}

	if sfnt.IsTrueType {
		if sfnt.Loca == nil {
			result.add(SeverityError, "loca", "missing for a TrueType font")
		} else {
			entrySize := int64(2)
			if sfnt.Loca.Format == 1 {
				entrySize = 4
			}
			want := int64(numGlyphs) + 1
			got := int64(len(sfnt.Loca.data)) / entrySize
			if got != want {
				result.add(SeverityError, "loca", "entry count %d does not match maxp.numGlyphs+1 %d", got, want)
			}
			n := got
			if want < n {
				n = want
			}
			prev, _ := sfnt.Loca.Get(0)
			for i := int64(1); i < n; i++ {
				offset, _ := sfnt.Loca.Get(uint16(i))
				if offset < prev {
					result.add(SeverityWarning, "loca", "entry %d is smaller than entry %d; offsets must not decrease", i, i-1)
					break
				}
				prev = offset
			}
		}
		if sfnt.Glyf == nil {
			result.add(SeverityError, "glyf", "missing for a TrueType font")
		}
	} else if sfnt.IsCFF {
		if sfnt.CFF == nil {
			result.add(SeverityError, "CFF ", "missing for a CFF font")
		} else if uint16(sfnt.CFF.charStrings.Len()) != numGlyphs {
			result.add(SeverityError, "CFF ", "charstring count %d does not match maxp.numGlyphs %d", sfnt.CFF.charStrings.Len(), numGlyphs)
		}
	} else {
		result.add(SeverityError, "glyf/CFF", "font is neither TrueType nor CFF")
	}

	if sfnt.Post != nil && sfnt.Post.NumGlyphs != 0 && sfnt.Post.NumGlyphs != numGlyphs {
		result.add(SeverityWarning, "post", "format 2.0 glyph name count %d does not match maxp.numGlyphs %d", sfnt.Post.NumGlyphs, numGlyphs)
	}

	if sfnt.OS2 != nil && (sfnt.OS2.UsWeightClass < 1 || 1000 < sfnt.OS2.UsWeightClass) {
		result.add(SeverityWarning, "OS/2", "usWeightClass %d outside the expected [1,1000] range", sfnt.OS2.UsWeightClass)
	}

	if sfnt.Cmap == nil {
		result.add(SeverityWarning, "cmap", "missing, glyph lookup by rune will be unavailable")
	}

	if sfnt.Fvar != nil {
		if sfnt.Gvar != nil && sfnt.Gvar.AxisCount != len(sfnt.Fvar.Axes) {
			result.add(SeverityError, "gvar", "axis count %d does not match fvar axis count %d", sfnt.Gvar.AxisCount, len(sfnt.Fvar.Axes))
		}
		for _, axis := range sfnt.Fvar.Axes {
			if axis.Max < axis.Min || axis.Default < axis.Min || axis.Max < axis.Default {
				result.add(SeverityError, "fvar", "axis %q has out-of-order min/default/max (%v/%v/%v)", axis.Tag, axis.Min, axis.Default, axis.Max)
			}
		}
	} else if sfnt.Avar != nil || sfnt.Gvar != nil || sfnt.HVAR != nil || sfnt.MVAR != nil {
		result.add(SeverityWarning, "fvar", "variation tables present without fvar, variation will be unavailable")
	}

	return result
}
