package artifacts

import (
	"encoding/json"
	"fmt"
	"io"
)

// LabelEncoder maps class indices back to the labels seen during training.
type LabelEncoder struct {
	classes []string
}

type encoderFile struct {
	Classes []string `json:"classes"`
}

func NewLabelEncoder(classes []string) (*LabelEncoder, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("label encoder has no classes")
	}
	return &LabelEncoder{classes: append([]string(nil), classes...)}, nil
}

// DecodeLabelEncoder reads {"classes": [...]}.
func DecodeLabelEncoder(r io.Reader) (*LabelEncoder, error) {
	var f encoderFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode label encoder: %w", err)
	}
	return NewLabelEncoder(f.Classes)
}

func (e *LabelEncoder) Len() int { return len(e.classes) }

// Inverse returns the label for class index i.
func (e *LabelEncoder) Inverse(i int) (string, error) {
	if i < 0 || i >= len(e.classes) {
		return "", fmt.Errorf("%w: index %d, %d classes", ErrUnknownClass, i, len(e.classes))
	}
	return e.classes[i], nil
}
