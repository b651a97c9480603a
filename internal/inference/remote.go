package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Remote asks an HTTP inference sidecar for predictions, typically a small
// process that serves the model in its native training framework.
//
//	POST {URL}  {"inputs": [[...]]}
//	200         {"outputs": [[[...]]]}          one head
//	200         {"outputs": [[[...]], [[...]]]} diagnosis and stage heads
type Remote struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
}

type remoteRequest struct {
	Inputs [][]float64 `json:"inputs"`
}

type remoteResponse struct {
	Outputs [][][]float64 `json:"outputs"`
}

func NewRemote(url string, timeout time.Duration) *Remote {
	return &Remote{
		URL:     url,
		Client:  &http.Client{},
		Timeout: timeout,
	}
}

func (r *Remote) Predict(ctx context.Context, x mat.Matrix) (Output, error) {
	rows, _ := x.Dims()
	if rows != 1 {
		return nil, fmt.Errorf("%w: got %d rows, want 1", ErrShapeMismatch, rows)
	}

	body, err := json.Marshal(remoteRequest{Inputs: [][]float64{mat.Row(nil, 0, x)}})
	if err != nil {
		return nil, fmt.Errorf("encode inference request: %w", err)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call inference service: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("inference service returned %d: %s", res.StatusCode, bytes.TrimSpace(msg))
	}

	var out remoteResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode inference response: %w", err)
	}

	heads := make([][]float64, 0, len(out.Outputs))
	for i, o := range out.Outputs {
		if len(o) != 1 || len(o[0]) == 0 {
			return nil, fmt.Errorf("%w: output %d is not a single non-empty row", ErrShapeMismatch, i)
		}
		heads = append(heads, o[0])
	}
	return fromArrays(heads)
}
