// Package testsupport writes small, self-consistent artifact sets for tests.
package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Skufu/microbiome-stage/internal/config"
)

const (
	Feature1 = "k__Bacteria; p__Firmicutes; c__Clostridia; o__Clostridiales; f__Peptostreptococcaceae;g__Peptostreptococcus; s__anaerobius"
	Feature2 = "k__Bacteria; p__Bacteroidetes; c__Bacteroidia; o__Bacteroidales; f__Prevotellaceae; g__Prevotella; s__stercorea"
	Feature3 = "k__Bacteria; p__Bacteroidetes; c__Bacteroidia; o__Bacteroidales; f__Bacteroidaceae; g__Bacteroides"
	Feature4 = "k__Bacteria; p__Bacteroidetes; c__Bacteroidia; o__Bacteroidales"
	Unmapped = "k__Bacteria; p__Proteobacteria"
)

// Header is the reference CSV header. The derived schema is Schema.
var Header = []string{
	"SAMPLE_ID", "PATIENT_ID", "AGE", "DIAGNOSIS", "FIBROBLAST_AND_VESSEL_PERCENT",
	"SEX", Feature1, Unmapped, Feature2, Feature3, Feature4, "STAGE", "TUMOR_PERCENT",
}

var Schema = []string{
	"AGE", "FIBROBLAST_AND_VESSEL_PERCENT", "SEX", Feature1, Unmapped, Feature2, Feature3, Feature4,
}

var (
	DiagnosisClasses = []string{"Healthy", "Tumor"}
	StageClasses     = []string{"I", "II", "III"}
)

// Options tweak the generated artifact set.
type Options struct {
	// SingleHead writes a model with one output head over DiagnosisClasses.
	SingleHead bool
	// SkipSlots leaves out feature_slots.yaml.
	SkipSlots bool
}

// Model returns a network document whose diagnosis head votes "Tumor" when
// SEX is set and whose stage head votes by the sign of AGE-50.
func Model(singleHead bool) map[string]any {
	n := len(Schema)
	diag := make([][]float64, n)
	stage := make([][]float64, n)
	for i := range diag {
		diag[i] = []float64{0, 0}
		stage[i] = []float64{0, 0, 0}
	}
	diag[2] = []float64{-1, 1}
	stage[0] = []float64{-1, 0, 1}

	diagLayer := map[string]any{"weights": diag, "bias": []float64{0.5, 0}, "activation": "softmax"}
	stageLayer := map[string]any{"weights": stage, "bias": []float64{0, 0.1, 0}, "activation": "softmax"}

	if singleHead {
		return map[string]any{"heads": [][]any{{diagLayer}}}
	}
	return map[string]any{"heads": [][]any{{diagLayer}, {stageLayer}}}
}

// Write creates every artifact in a temp dir and returns their paths.
// The scaler centres AGE on 50 and leaves the other columns unchanged.
func Write(t testing.TB, opts Options) config.ArtifactPaths {
	t.Helper()
	dir := t.TempDir()
	paths := config.ArtifactPaths{
		Dir:          dir,
		Model:        filepath.Join(dir, "model.json"),
		Scaler:       filepath.Join(dir, "scaler.json"),
		DiagEncoder:  filepath.Join(dir, "label_encoder_diag.json"),
		StageEncoder: filepath.Join(dir, "label_encoder_stage.json"),
		SchemaCSV:    filepath.Join(dir, "last_data1.csv"),
		FeatureSlots: filepath.Join(dir, "feature_slots.yaml"),
	}

	mean := make([]float64, len(Schema))
	scale := make([]float64, len(Schema))
	for i := range scale {
		scale[i] = 1
	}
	mean[0] = 50

	writeJSON(t, paths.Model, Model(opts.SingleHead))
	writeJSON(t, paths.Scaler, map[string]any{"mean": mean, "scale": scale})
	writeJSON(t, paths.DiagEncoder, map[string]any{"classes": DiagnosisClasses})
	writeJSON(t, paths.StageEncoder, map[string]any{"classes": StageClasses})

	quoted := make([]string, len(Header))
	for i, h := range Header {
		quoted[i] = `"` + h + `"`
	}
	csv := strings.Join(quoted, ",") + "\n" + "s1,p1,40,Tumor,2.1,1,0,0,0,0,0,II,30\n"
	writeFile(t, paths.SchemaCSV, []byte(csv))

	if !opts.SkipSlots {
		writeFile(t, paths.FeatureSlots, []byte(SlotsYAML))
	}
	return paths
}

// SlotsYAML maps the form fields onto the default feature names.
var SlotsYAML = `slots:
  - field: age
    feature: AGE
  - field: fibro_vessel
    feature: FIBROBLAST_AND_VESSEL_PERCENT
  - field: sex
    feature: SEX
  - field: feature1
    feature: "` + Feature1 + `"
  - field: feature2
    feature: "` + Feature2 + `"
  - field: feature3
    feature: "` + Feature3 + `"
  - field: feature4
    feature: "` + Feature4 + `"
`

func writeJSON(t testing.TB, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %s: %v", path, err)
	}
	writeFile(t, path, data)
}

func writeFile(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
