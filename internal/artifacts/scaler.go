package artifacts

import (
	"encoding/json"
	"fmt"
	"io"

	"gonum.org/v1/gonum/mat"
)

// StandardScaler applies a fitted standardisation, (x - mean) / scale, per
// column. It never changes after construction.
type StandardScaler struct {
	mean  []float64
	scale []float64
}

type scalerFile struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

func NewStandardScaler(mean, scale []float64) (*StandardScaler, error) {
	if len(mean) == 0 {
		return nil, fmt.Errorf("scaler has no columns")
	}
	if len(mean) != len(scale) {
		return nil, fmt.Errorf("scaler mean has %d columns, scale has %d", len(mean), len(scale))
	}
	s := &StandardScaler{
		mean:  append([]float64(nil), mean...),
		scale: append([]float64(nil), scale...),
	}
	for j, v := range s.scale {
		if v == 0 {
			s.scale[j] = 1
		}
	}
	return s, nil
}

// DecodeScaler reads {"mean": [...], "scale": [...]}.
func DecodeScaler(r io.Reader) (*StandardScaler, error) {
	var f scalerFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode scaler: %w", err)
	}
	return NewStandardScaler(f.Mean, f.Scale)
}

func (s *StandardScaler) Width() int { return len(s.mean) }

// Transform returns a new scaled matrix; x is left untouched.
func (s *StandardScaler) Transform(x mat.Matrix) (*mat.Dense, error) {
	r, c := x.Dims()
	if c != len(s.mean) {
		return nil, fmt.Errorf("%w: scaler fitted on %d features, got %d", ErrWidthMismatch, len(s.mean), c)
	}
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, j int, v float64) float64 {
		return (v - s.mean[j]) / s.scale[j]
	}, x)
	return out, nil
}
