package prior

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// Support is a set of active coefficient indices backed by a roaring bitmap.
type Support struct {
	rb *roaring.Bitmap
	n  int
}

// NewSupport creates a support over n coefficients containing indices.
func NewSupport(n int, indices ...int) *Support {
	s := &Support{rb: roaring.New(), n: n}
	for _, k := range indices {
		s.rb.Add(uint32(k))
	}
	return s
}

// SupportOf declares coefficient k active iff xhat[k] != 0.
func SupportOf(xhat []float64) *Support {
	s := NewSupport(len(xhat))
	for k, x := range xhat {
		if x != 0 {
			s.rb.Add(uint32(k))
		}
	}
	return s
}

// Len returns the number of coefficients the support is defined over.
func (s *Support) Len() int { return s.n }

// Contains reports whether coefficient k is active.
func (s *Support) Contains(k int) bool {
	return s.rb.Contains(uint32(k))
}

// Cardinality returns the number of active coefficients.
func (s *Support) Cardinality() int {
	return int(s.rb.GetCardinality())
}

// Indices returns the active coefficients in increasing order.
func (s *Support) Indices() []int {
	arr := s.rb.ToArray()
	out := make([]int, len(arr))
	for i, v := range arr {
		out[i] = int(v)
	}
	return out
}

// Mask returns the support as a binary mask of length Len().
func (s *Support) Mask() []bool {
	mask := make([]bool, s.n)
	it := s.rb.Iterator()
	for it.HasNext() {
		if k := int(it.Next()); k < s.n {
			mask[k] = true
		}
	}
	return mask
}

// Precision is the fraction of active coefficients that are also in truth.
// An empty support has precision 1.
func (s *Support) Precision(truth *Support) float64 {
	c := s.rb.GetCardinality()
	if c == 0 {
		return 1
	}
	return float64(s.rb.AndCardinality(truth.rb)) / float64(c)
}

// Recall is the fraction of truth's coefficients recovered by s.
// An empty truth has recall 1.
func (s *Support) Recall(truth *Support) float64 {
	c := truth.rb.GetCardinality()
	if c == 0 {
		return 1
	}
	return float64(s.rb.AndCardinality(truth.rb)) / float64(c)
}
