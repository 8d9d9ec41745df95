package font

import (
	"testing"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/test"
)

func TestTupleScalar(t *testing.T) {
	test.T(t, tupleScalar(0, 0, 0, 0.5), 1.0)       // peak 0: axis doesn't participate
	test.T(t, tupleScalar(0, 1, 1, -0.5), 0.0)      // below start
	test.T(t, tupleScalar(0, 1, 1, 1.5), 0.0)       // above end
	test.T(t, tupleScalar(0, 1, 1, 1), 1.0)         // at peak
	test.T(t, tupleScalar(0, 1, 2, 0.5), 0.5)       // halfway to peak
	test.T(t, tupleScalar(0, 1, 2, 1.5), 0.5)       // halfway down from peak
	test.T(t, tupleScalar(-1, -1, 0, -1), 1.0)      // peak at the lower bound
}

func TestRegionScalar(t *testing.T) {
	axes := []ivsRegionAxis{{Start: 0, Peak: 1, End: 1}, {Start: 0, Peak: 1, End: 1}}
	test.T(t, regionScalar(axes, []float64{1, 1}), 1.0)
	test.T(t, regionScalar(axes, []float64{1, 0}), 0.0)
	test.T(t, regionScalar(axes, []float64{0.5, 1}), 0.5)
}

func TestItemVariationStoreDelta(t *testing.T) {
	ivs := &itemVariationStore{
		Regions: []ivsRegion{
			{Axes: []ivsRegionAxis{{Start: 0, Peak: 1, End: 1}}},
		},
		Datas: []itemVariationData{
			{RegionIndexes: []uint16{0}, DeltaSets: [][]int32{{100}, {-50}}},
		},
	}
	test.T(t, ivs.Delta(0, 0, []float64{1}), 100.0)
	test.T(t, ivs.Delta(0, 0, []float64{0.5}), 50.0)
	test.T(t, ivs.Delta(0, 1, []float64{1}), -50.0)
	test.T(t, ivs.Delta(1, 0, []float64{1}), 0.0) // out-of-range outer
}

func TestFvarNormalize(t *testing.T) {
	fvar := &fvarTable{Axes: []fvarAxis{
		{Tag: "wght", Min: 100, Default: 400, Max: 900},
	}}
	coords := fvar.Normalize(map[string]float64{"wght": 400}, nil)
	test.T(t, coords[0], 0.0)

	coords = fvar.Normalize(map[string]float64{"wght": 900}, nil)
	test.T(t, coords[0], 1.0)

	coords = fvar.Normalize(map[string]float64{"wght": 100}, nil)
	test.T(t, coords[0], -1.0)

	coords = fvar.Normalize(map[string]float64{"wght": 1500}, nil) // clamped to max
	test.T(t, coords[0], 1.0)

	coords = fvar.Normalize(map[string]float64{"wght": 250}, nil) // halfway to default
	test.T(t, coords[0], -0.5)

	coords = fvar.Normalize(nil, nil) // missing axis value defaults
	test.T(t, coords[0], 0.0)
}

func TestAvarMap(t *testing.T) {
	avar := &avarTable{Segments: [][]avarSegmentPoint{
		{{From: -1, To: -1}, {From: 0, To: 0}, {From: 0.5, To: 0.8}, {From: 1, To: 1}},
	}}
	test.T(t, avar.Map(0, 0.25), 0.4)
	test.T(t, avar.Map(0, 0.5), 0.8)
	test.T(t, avar.Map(0, 1), 1.0)
	test.T(t, avar.Map(1, 0.3), 0.3) // axis has no segment map: passes through

	noAnchor := &avarTable{Segments: [][]avarSegmentPoint{
		{{From: 0, To: 0.2}},
	}}
	test.T(t, noAnchor.Map(0, 0.5), 0.5) // missing required anchors: passes through
}

func TestGvarPackedPointNumbers(t *testing.T) {
	r := parse.NewBinaryReaderBytes([]byte{0x00}) // zero count means "all points"
	test.T(t, parsePackedPointNumbers(r) == nil, true)

	// 3 points, single run of byte deltas: 1, 3, 2 (cumulative 1, 4, 6)
	r = parse.NewBinaryReaderBytes([]byte{0x03, 0x02, 0x01, 0x03, 0x02})
	points := parsePackedPointNumbers(r)
	test.T(t, points, []uint16{1, 4, 6})
}

func TestGvarPackedDeltas(t *testing.T) {
	// zero run of 3, then 2 byte deltas (5, -5)
	r := parse.NewBinaryReaderBytes([]byte{0x82, 0x01, 5, 0xFB})
	deltas := parsePackedDeltas(r, 5)
	test.T(t, deltas, []int16{0, 0, 0, 5, -5})
}

func TestGvarTupleScalar(t *testing.T) {
	tup := gvarTupleVariation{Peak: []float64{1}}
	test.T(t, gvarTupleScalar(tup, 1, []float64{1}), 1.0)
	test.T(t, gvarTupleScalar(tup, 1, []float64{0}), 0.0)

	tup = gvarTupleVariation{Peak: []float64{0}}
	test.T(t, gvarTupleScalar(tup, 1, []float64{0.3}), 1.0) // axis doesn't participate
}
