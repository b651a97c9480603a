package artifacts

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/Skufu/microbiome-stage/internal/config"
	"github.com/Skufu/microbiome-stage/internal/inference"
)

// Bundle is everything a prediction needs. It is built once by Load and
// shared read-only between requests; callers must not modify it.
type Bundle struct {
	Predictor    inference.Predictor
	Scaler       *StandardScaler
	DiagEncoder  *LabelEncoder
	StageEncoder *LabelEncoder
	Schema       []string
	Slots        *SlotMap
	Backend      string
}

// Load reads the artifacts in a fixed order: model, scaler, diagnosis
// encoder, stage encoder, schema csv, feature slots. Any failure is
// returned; the caller is expected to refuse to serve.
func Load(paths config.ArtifactPaths, inf config.InferenceConfig, log *zap.Logger) (*Bundle, error) {
	b := &Bundle{Backend: inf.Backend}

	var net *inference.Network
	switch inf.Backend {
	case config.BackendRemote:
		b.Predictor = inference.NewRemote(inf.URL, inf.Timeout)
		log.Info("using remote inference", zap.String("url", inf.URL))
	default:
		var err error
		net, err = decodeFile(paths.Model, inference.DecodeNetwork)
		if err != nil {
			return nil, fmt.Errorf("load model: %w", err)
		}
		b.Predictor = net
		log.Info("model loaded", zap.String("path", paths.Model), zap.Int("inputs", net.InputWidth()))
	}

	var err error
	if b.Scaler, err = decodeFile(paths.Scaler, DecodeScaler); err != nil {
		return nil, fmt.Errorf("load scaler: %w", err)
	}
	if b.DiagEncoder, err = decodeFile(paths.DiagEncoder, DecodeLabelEncoder); err != nil {
		return nil, fmt.Errorf("load diagnosis encoder: %w", err)
	}
	if b.StageEncoder, err = decodeFile(paths.StageEncoder, DecodeLabelEncoder); err != nil {
		return nil, fmt.Errorf("load stage encoder: %w", err)
	}
	if b.Schema, err = decodeFile(paths.SchemaCSV, ReadSchema); err != nil {
		return nil, fmt.Errorf("load feature schema: %w", err)
	}

	b.Slots, err = decodeFile(paths.FeatureSlots, DecodeSlots)
	if errors.Is(err, os.ErrNotExist) {
		log.Info("feature slot file not found, using built-in mapping", zap.String("path", paths.FeatureSlots))
		b.Slots, err = NewSlotMap(DefaultSlots)
	}
	if err != nil {
		return nil, fmt.Errorf("load feature slots: %w", err)
	}

	if b.Scaler.Width() != len(b.Schema) {
		return nil, fmt.Errorf("%w: scaler has %d features, schema has %d", ErrWidthMismatch, b.Scaler.Width(), len(b.Schema))
	}
	if net != nil && net.InputWidth() != len(b.Schema) {
		return nil, fmt.Errorf("%w: model takes %d features, schema has %d", ErrWidthMismatch, net.InputWidth(), len(b.Schema))
	}

	known := make(map[string]bool, len(b.Schema))
	for _, name := range b.Schema {
		known[name] = true
	}
	for i := 0; i < b.Slots.Len(); i++ {
		if f := b.Slots.Feature(i); !known[f] {
			log.Warn("mapped feature is not in schema and will be ignored",
				zap.String("field", InputFields[i]), zap.String("feature", f))
		}
	}

	log.Info("artifacts loaded",
		zap.String("dir", paths.Dir),
		zap.Int("features", len(b.Schema)),
		zap.Int("diagnosis_classes", b.DiagEncoder.Len()),
		zap.Int("stage_classes", b.StageEncoder.Len()),
	)
	return b, nil
}

func decodeFile[T any](path string, decode func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()

	v, err := decode(f)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}
