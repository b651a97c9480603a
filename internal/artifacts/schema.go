package artifacts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Output columns of the reference dataset; they are never model inputs.
var outputColumns = []string{"DIAGNOSIS", "STAGE", "TUMOR_PERCENT"}

// identifierColumns is how many leading non-output columns are skipped.
const identifierColumns = 2

// ReadSchema derives the ordered feature names the model was trained on
// from the header row of the reference CSV.
func ReadSchema(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("reference csv is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	drop := make(map[string]bool, len(outputColumns))
	for _, name := range outputColumns {
		drop[name] = true
	}
	seen := make(map[string]bool, len(outputColumns))
	remaining := make([]string, 0, len(header))
	for _, name := range header {
		if drop[name] {
			seen[name] = true
			continue
		}
		remaining = append(remaining, name)
	}
	for _, name := range outputColumns {
		if !seen[name] {
			return nil, fmt.Errorf("reference csv has no %s column", name)
		}
	}

	if len(remaining) <= identifierColumns {
		return nil, fmt.Errorf("reference csv has no feature columns")
	}
	return append([]string(nil), remaining[identifierColumns:]...), nil
}
