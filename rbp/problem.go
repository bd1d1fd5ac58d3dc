package rbp

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/quantcs/channel"
	"github.com/hupe1980/quantcs/prior"
)

// Block pairs the measurement matrix of one signal column with the
// channel of its measurements.
type Block struct {
	A       mat.Matrix
	Channel channel.Channel
}

// Problem is a T-column recovery problem, T = len(Blocks) ≥ 1. Every
// matrix has N columns; the signal has N·T coefficients in column-major order.
type Problem struct {
	Blocks []Block
	Prior  prior.Prior
	// Truth optionally holds the N·T ground-truth coefficients for the
	// diagnostic MSE trace.
	Truth []float64
	// CommonMatrix marks every block as sharing Blocks[0].A.
	CommonMatrix bool
}

// NewProblem builds a problem from one channel per column. With
// commonMatrix, matrices must hold exactly one matrix used for every
// column; otherwise there must be one matrix per channel.
func NewProblem(matrices []mat.Matrix, channels []channel.Channel, p prior.Prior, commonMatrix bool) (*Problem, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("%w: no measurement blocks", ErrInvalidProblem)
	}
	if commonMatrix && len(matrices) != 1 {
		return nil, fmt.Errorf("%w: common matrix needs exactly one matrix, got %d", ErrInvalidProblem, len(matrices))
	}
	if !commonMatrix && len(matrices) != len(channels) {
		return nil, fmt.Errorf("%w: %d matrices for %d channels", ErrInvalidProblem, len(matrices), len(channels))
	}

	blocks := make([]Block, len(channels))
	for t, ch := range channels {
		a := matrices[0]
		if !commonMatrix {
			a = matrices[t]
		}
		blocks[t] = Block{A: a, Channel: ch}
	}

	return &Problem{Blocks: blocks, Prior: p, CommonMatrix: commonMatrix}, nil
}

// Columns returns T.
func (p *Problem) Columns() int { return len(p.Blocks) }

// Coefficients returns N, the number of coefficients per column.
func (p *Problem) Coefficients() int {
	if len(p.Blocks) == 0 || p.Blocks[0].A == nil {
		return 0
	}
	_, n := p.Blocks[0].A.Dims()
	return n
}

// Validate checks that the problem is well formed.
func (p *Problem) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil problem", ErrInvalidProblem)
	}
	if p.Prior == nil {
		return fmt.Errorf("%w: nil prior", ErrInvalidProblem)
	}
	if len(p.Blocks) == 0 {
		return fmt.Errorf("%w: no measurement blocks", ErrInvalidProblem)
	}

	n := p.Coefficients()
	if n == 0 {
		return fmt.Errorf("%w: block 0 has no coefficients", ErrInvalidProblem)
	}

	for t, b := range p.Blocks {
		if b.A == nil || b.Channel == nil {
			return fmt.Errorf("%w: block %d is missing its matrix or channel", ErrInvalidProblem, t)
		}
		if p.CommonMatrix && b.A != p.Blocks[0].A {
			return fmt.Errorf("%w: block %d does not share the common matrix", ErrInvalidProblem, t)
		}
		m, cols := b.A.Dims()
		if cols != n {
			return &ErrDimensionMismatch{Block: t, Field: "matrix columns", Expected: n, Actual: cols}
		}
		if got := b.Channel.Len(); got != m {
			return &ErrDimensionMismatch{Block: t, Field: "measurements", Expected: m, Actual: got}
		}
	}

	if sized, ok := p.Prior.(prior.Sized); ok {
		if l := sized.ParamLen(); l != 1 && l != n*len(p.Blocks) {
			return &ErrDimensionMismatch{Block: -1, Field: "prior rates", Expected: n * len(p.Blocks), Actual: l}
		}
	}

	if len(p.Truth) > 0 && len(p.Truth) != n*len(p.Blocks) {
		return &ErrDimensionMismatch{Block: -1, Field: "ground truth", Expected: n * len(p.Blocks), Actual: len(p.Truth)}
	}
	return nil
}
