package prediction

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Skufu/microbiome-stage/internal/artifacts"
	"github.com/Skufu/microbiome-stage/internal/inference"
)

// Result is a decoded prediction.
type Result struct {
	Diagnosis string
	Stage     string
}

func (r Result) String() string {
	return fmt.Sprintf("Predicted Diagnosis: %s, Predicted Stage: %s", r.Diagnosis, r.Stage)
}

// Service runs the form-to-label pipeline against a loaded bundle.
type Service struct {
	bundle *artifacts.Bundle
	log    *zap.Logger
}

func NewService(bundle *artifacts.Bundle, log *zap.Logger) *Service {
	return &Service{bundle: bundle, log: log}
}

// Predict parses the form, scales the projected row, runs the model and
// decodes the result.
func (s *Service) Predict(ctx context.Context, lookup Lookup) (Result, error) {
	values, err := ParseInputs(lookup)
	if err != nil {
		return Result{}, err
	}
	if len(values) != ExpectedInputs {
		return Result{}, fmt.Errorf("%w: got %d", ErrInputCount, len(values))
	}

	row := Project(values, s.bundle.Slots, s.bundle.Schema)
	scaled, err := s.bundle.Scaler.Transform(row)
	if err != nil {
		return Result{}, fmt.Errorf("scale input: %w", err)
	}

	out, err := s.bundle.Predictor.Predict(ctx, scaled)
	if err != nil {
		return Result{}, fmt.Errorf("run model: %w", err)
	}
	s.log.Debug("model output", zap.String("kind", fmt.Sprintf("%T", out)), zap.Any("scores", out))

	return Decode(out, s.bundle.DiagEncoder, s.bundle.StageEncoder)
}

// Decode maps the model output back to labels. A single-head output yields
// the same label for diagnosis and stage.
func Decode(out inference.Output, diag, stage *artifacts.LabelEncoder) (Result, error) {
	switch o := out.(type) {
	case inference.Paired:
		d, err := diag.Inverse(inference.Argmax(o.Diagnosis))
		if err != nil {
			return Result{}, fmt.Errorf("decode diagnosis: %w", err)
		}
		st, err := stage.Inverse(inference.Argmax(o.Stage))
		if err != nil {
			return Result{}, fmt.Errorf("decode stage: %w", err)
		}
		return Result{Diagnosis: d, Stage: st}, nil
	case inference.Single:
		d, err := diag.Inverse(inference.Argmax(o.Scores))
		if err != nil {
			return Result{}, fmt.Errorf("decode diagnosis: %w", err)
		}
		return Result{Diagnosis: d, Stage: d}, nil
	default:
		return Result{}, fmt.Errorf("%w: %T", inference.ErrOutputCount, out)
	}
}
