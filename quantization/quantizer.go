package quantization

import (
	"encoding/binary"
	"errors"
	"math"
	"sort"
)

// Quantizer maps real values to one of Q levels. It is immutable after
// construction and safe for concurrent use.
type Quantizer struct {
	boundaries []float64 // Q-1 strictly increasing decision thresholds
	levels     []float64 // Q reconstruction points
}

// New creates a quantizer from decision boundaries and reconstruction levels.
// It returns an *ErrInvalidBoundaries if the table is malformed.
func New(boundaries, levels []float64) (*Quantizer, error) {
	if len(levels) == 0 {
		return nil, &ErrInvalidBoundaries{Field: "levels", Index: 0, Reason: "at least one level is required"}
	}
	if len(boundaries) != len(levels)-1 {
		return nil, &ErrInvalidBoundaries{
			Field:  "boundaries",
			Index:  len(boundaries),
			Reason: "expected exactly one boundary fewer than levels",
		}
	}

	for i, b := range boundaries {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return nil, &ErrInvalidBoundaries{Field: "boundaries", Index: i, Reason: "boundary must be finite"}
		}
		if i > 0 && b <= boundaries[i-1] {
			return nil, &ErrInvalidBoundaries{Field: "boundaries", Index: i, Reason: "boundaries must be strictly increasing"}
		}
	}

	q := &Quantizer{
		boundaries: append([]float64(nil), boundaries...),
		levels:     append([]float64(nil), levels...),
	}

	for k, l := range q.levels {
		lo, hi := q.bin(k)
		if math.IsNaN(l) || l < lo || l >= hi {
			return nil, &ErrInvalidBoundaries{Field: "levels", Index: k, Reason: "reconstruction level must lie inside its bin"}
		}
	}

	return q, nil
}

// PassThrough returns the single-level quantizer used for unquantized
// measurements.
func PassThrough() *Quantizer {
	return &Quantizer{levels: []float64{0}}
}

// IsPassThrough reports whether q has a single level.
func (q *Quantizer) IsPassThrough() bool {
	return len(q.levels) == 1
}

// NumLevels returns Q.
func (q *Quantizer) NumLevels() int {
	return len(q.levels)
}

// Bits returns log2(Q).
func (q *Quantizer) Bits() float64 {
	return math.Log2(float64(len(q.levels)))
}

// Boundaries returns a copy of the decision boundaries.
func (q *Quantizer) Boundaries() []float64 {
	return append([]float64(nil), q.boundaries...)
}

// Levels returns a copy of the reconstruction levels.
func (q *Quantizer) Levels() []float64 {
	return append([]float64(nil), q.levels...)
}

// Quantize returns the index of the level whose bin contains x.
func (q *Quantizer) Quantize(x float64) int {
	// Boundaries are closed on the left of the upper bin.
	return sort.Search(len(q.boundaries), func(i int) bool {
		return q.boundaries[i] > x
	})
}

// LevelInfo returns the bin [lower, upper) and reconstruction point of level k.
// It panics if k is out of range.
func (q *Quantizer) LevelInfo(k int) (lower, upper, reconstruction float64) {
	lo, hi := q.bin(k)
	return lo, hi, q.levels[k]
}

func (q *Quantizer) bin(k int) (float64, float64) {
	if k < 0 || k >= len(q.levels) {
		panic("quantization: level index out of range")
	}
	lo, hi := math.Inf(-1), math.Inf(1)
	if k > 0 {
		lo = q.boundaries[k-1]
	}
	if k < len(q.boundaries) {
		hi = q.boundaries[k]
	}
	return lo, hi
}

// Encode quantizes every value.
func (q *Quantizer) Encode(values []float64) []int {
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = q.Quantize(v)
	}
	return out
}

// Decode maps level indices to their reconstruction points.
func (q *Quantizer) Decode(indices []int) []float64 {
	out := make([]float64, len(indices))
	for i, k := range indices {
		out[i] = q.levels[k]
	}
	return out
}

// Apply quantizes and reconstructs in one step.
func (q *Quantizer) Apply(values []float64) []float64 {
	if q.IsPassThrough() {
		return append([]float64(nil), values...)
	}
	return q.Decode(q.Encode(values))
}

// MarshalBinary implements encoding.BinaryMarshaler.
// Format (little-endian): [Q:uint32][levels:float64*Q][boundaries:float64*(Q-1)]
func (q *Quantizer) MarshalBinary() ([]byte, error) {
	n := len(q.levels)
	b := make([]byte, 4+8*(2*n-1))
	binary.LittleEndian.PutUint32(b[0:4], uint32(n))
	off := 4
	for _, v := range q.levels {
		binary.LittleEndian.PutUint64(b[off:], math.Float64bits(v))
		off += 8
	}
	for _, v := range q.boundaries {
		binary.LittleEndian.PutUint64(b[off:], math.Float64bits(v))
		off += 8
	}
	return b, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. The decoded table
// is validated like New.
func (q *Quantizer) UnmarshalBinary(data []byte) error {
	if len(data) < 4 {
		return errors.New("quantization: invalid binary length")
	}
	n := int(binary.LittleEndian.Uint32(data[0:4]))
	if n == 0 || len(data) != 4+8*(2*n-1) {
		return errors.New("quantization: invalid binary length")
	}

	levels := make([]float64, n)
	boundaries := make([]float64, n-1)
	off := 4
	for i := range levels {
		levels[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[off:]))
		off += 8
	}
	for i := range boundaries {
		boundaries[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[off:]))
		off += 8
	}

	decoded, err := New(boundaries, levels)
	if err != nil {
		return err
	}
	*q = *decoded
	return nil
}
