// Package artifacts loads the fitted model, scaler, label encoders and
// feature schema the prediction service depends on.
package artifacts

import "errors"

var (
	ErrWidthMismatch = errors.New("feature width mismatch")
	ErrUnknownClass  = errors.New("class index out of range")
)
