// Package inference evaluates the trained classifier and reports its raw
// class scores.
package inference

import (
	"context"
	"errors"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrShapeMismatch = errors.New("input shape does not match model")
	ErrOutputCount   = errors.New("unsupported number of model outputs")
)

// Output is the result of one inference call. It is either Single or Paired.
type Output interface {
	outputs() int
}

// Single holds the scores of a model with one output head. The same argmax
// serves as both diagnosis and stage.
type Single struct {
	Scores []float64
}

// Paired holds the scores of a model with separate diagnosis and stage heads.
type Paired struct {
	Diagnosis []float64
	Stage     []float64
}

func (Single) outputs() int { return 1 }
func (Paired) outputs() int { return 2 }

// Predictor runs the model on a single scaled row.
type Predictor interface {
	Predict(ctx context.Context, x mat.Matrix) (Output, error)
}

// fromArrays maps a list of per-head score rows onto the tagged output.
func fromArrays(heads [][]float64) (Output, error) {
	switch len(heads) {
	case 1:
		return Single{Scores: heads[0]}, nil
	case 2:
		return Paired{Diagnosis: heads[0], Stage: heads[1]}, nil
	default:
		return nil, ErrOutputCount
	}
}

// Argmax returns the index of the largest score; the first one wins ties.
// It returns -1 for an empty slice.
func Argmax(scores []float64) int {
	best := -1
	for i, s := range scores {
		if best < 0 || s > scores[best] {
			best = i
		}
	}
	return best
}
