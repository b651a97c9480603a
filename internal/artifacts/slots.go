package artifacts

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// InputFields are the form fields, in the order their values are assembled.
var InputFields = []string{"age", "fibro_vessel", "sex", "feature1", "feature2", "feature3", "feature4"}

// Slot ties one input field to the schema feature it populates.
type Slot struct {
	Field   string `yaml:"field"`
	Feature string `yaml:"feature"`
}

type slotsFile struct {
	Slots []Slot `yaml:"slots"`
}

// SlotMap holds the feature name for each position of InputFields.
type SlotMap struct {
	features []string
}

// DefaultSlots is the mapping the bundled model was trained with.
var DefaultSlots = []Slot{
	{Field: "age", Feature: "AGE"},
	{Field: "fibro_vessel", Feature: "FIBROBLAST_AND_VESSEL_PERCENT"},
	{Field: "sex", Feature: "SEX"},
	{Field: "feature1", Feature: "k__Bacteria; p__Firmicutes; c__Clostridia; o__Clostridiales; f__Peptostreptococcaceae;g__Peptostreptococcus; s__anaerobius"},
	{Field: "feature2", Feature: "k__Bacteria; p__Bacteroidetes; c__Bacteroidia; o__Bacteroidales; f__Prevotellaceae; g__Prevotella; s__stercorea"},
	{Field: "feature3", Feature: "k__Bacteria; p__Bacteroidetes; c__Bacteroidia; o__Bacteroidales; f__Bacteroidaceae; g__Bacteroides"},
	{Field: "feature4", Feature: "k__Bacteria; p__Bacteroidetes; c__Bacteroidia; o__Bacteroidales"},
}

// NewSlotMap checks that every input field is mapped exactly once to a
// distinct, non-empty feature name.
func NewSlotMap(slots []Slot) (*SlotMap, error) {
	if len(slots) != len(InputFields) {
		return nil, fmt.Errorf("feature slots: got %d entries, want %d", len(slots), len(InputFields))
	}

	byField := make(map[string]string, len(slots))
	features := make(map[string]bool, len(slots))
	for _, s := range slots {
		if s.Feature == "" {
			return nil, fmt.Errorf("feature slots: field %q has no feature", s.Field)
		}
		if _, dup := byField[s.Field]; dup {
			return nil, fmt.Errorf("feature slots: field %q listed twice", s.Field)
		}
		if features[s.Feature] {
			return nil, fmt.Errorf("feature slots: feature %q listed twice", s.Feature)
		}
		byField[s.Field] = s.Feature
		features[s.Feature] = true
	}

	m := &SlotMap{features: make([]string, len(InputFields))}
	for i, field := range InputFields {
		f, ok := byField[field]
		if !ok {
			return nil, fmt.Errorf("feature slots: field %q is not mapped", field)
		}
		m.features[i] = f
	}
	return m, nil
}

// DecodeSlots reads a YAML document of the form
//
//	slots:
//	  - field: age
//	    feature: AGE
func DecodeSlots(r io.Reader) (*SlotMap, error) {
	var f slotsFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode feature slots: %w", err)
	}
	return NewSlotMap(f.Slots)
}

// Feature returns the schema name for input position i.
func (m *SlotMap) Feature(i int) string { return m.features[i] }

func (m *SlotMap) Len() int { return len(m.features) }
