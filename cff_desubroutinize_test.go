package font

import (
	"testing"

	"github.com/tdewolff/test"
)

func TestCFFDesubroutinizeCharString(t *testing.T) {
	// local subr 0: two operands, rlineto, return
	localSubrs := &cffINDEX{}
	localSubrs.Add([]byte{144, 144, byte(cffRlineto), byte(cffReturn)})

	cff := &cffTable{
		version: 1,
		fonts: &cffFontINDEX{
			private:    []*cffPrivateDICT{{}},
			localSubrs: []*cffINDEX{localSubrs},
			first:      []uint32{0, 1},
			fd:         []uint16{0},
		},
	}

	// push -107 (bias-adjusted index 0), callsubr, endchar
	charString := []byte{32, byte(cffCallsubr), byte(cffEndchar)}
	out, err := cff.desubroutinizeCharString(0, charString, 0)
	test.Error(t, err)
	test.T(t, out, []byte{144, 144, byte(cffRlineto), byte(cffEndchar)})
}

func TestCFFDesubroutinize(t *testing.T) {
	localSubrs := &cffINDEX{}
	localSubrs.Add([]byte{144, 144, byte(cffRlineto), byte(cffReturn)})

	charStrings := &cffINDEX{}
	charStrings.Add([]byte{32, byte(cffCallsubr), byte(cffEndchar)})

	cff := &cffTable{
		version:     1,
		charStrings: charStrings,
		globalSubrs: &cffINDEX{},
		fonts: &cffFontINDEX{
			private:    []*cffPrivateDICT{{}},
			localSubrs: []*cffINDEX{localSubrs},
			first:      []uint32{0, 1},
			fd:         []uint16{0},
		},
	}

	test.Error(t, cff.Desubroutinize())
	test.T(t, cff.charStrings.Len(), 1)
	test.T(t, cff.charStrings.Get(0), []byte{144, 144, byte(cffRlineto), byte(cffEndchar)})
	test.T(t, cff.globalSubrs.Len(), 0)
	test.T(t, cff.fonts.localSubrs[0].Len(), 0)
}
