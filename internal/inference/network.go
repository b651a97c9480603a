package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/mat"
)

// LayerSpec is one fully connected layer as exported from training.
// Weights are laid out inputs x units.
type LayerSpec struct {
	Weights    [][]float64 `json:"weights"`
	Bias       []float64   `json:"bias"`
	Activation string      `json:"activation"`
}

// NetworkSpec is the on-disk form of a dense network. Layers form the shared
// trunk. Heads holds one or two output stacks; when empty the trunk output
// is the single head.
type NetworkSpec struct {
	Layers []LayerSpec   `json:"layers"`
	Heads  [][]LayerSpec `json:"heads"`
}

type dense struct {
	w   *mat.Dense
	b   []float64
	act string
}

// Network is an immutable feed-forward classifier. It is safe for
// concurrent use.
type Network struct {
	inputs int
	trunk  []dense
	heads  [][]dense
}

// DecodeNetwork reads a NetworkSpec as JSON and builds the network.
func DecodeNetwork(r io.Reader) (*Network, error) {
	var spec NetworkSpec
	if err := json.NewDecoder(r).Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return NewNetwork(spec)
}

// NewNetwork validates that layer shapes chain and builds the network.
func NewNetwork(spec NetworkSpec) (*Network, error) {
	if len(spec.Layers) == 0 && len(spec.Heads) == 0 {
		return nil, fmt.Errorf("model has no layers")
	}
	if len(spec.Heads) > 2 {
		return nil, fmt.Errorf("%w: %d heads", ErrOutputCount, len(spec.Heads))
	}

	n := &Network{}
	width := -1

	trunk, width, err := buildStack(spec.Layers, width, "trunk")
	if err != nil {
		return nil, err
	}
	n.trunk = trunk

	for i, h := range spec.Heads {
		if len(h) == 0 {
			return nil, fmt.Errorf("head %d has no layers", i)
		}
		if width < 0 {
			// headless trunk: every head must take the first head's inputs
			width = len(h[0].Weights)
		}
		stack, _, err := buildStack(h, width, fmt.Sprintf("head %d", i))
		if err != nil {
			return nil, err
		}
		n.heads = append(n.heads, stack)
	}

	if len(n.trunk) > 0 {
		n.inputs, _ = n.trunk[0].w.Dims()
	} else {
		n.inputs, _ = n.heads[0][0].w.Dims()
	}
	return n, nil
}

// buildStack converts specs into layers. width is the expected input width
// of the first layer, or -1 when unconstrained. It returns the output width.
func buildStack(specs []LayerSpec, width int, name string) ([]dense, int, error) {
	out := make([]dense, 0, len(specs))
	for i, ls := range specs {
		rows := len(ls.Weights)
		if rows == 0 {
			return nil, 0, fmt.Errorf("%s layer %d: empty weights", name, i)
		}
		cols := len(ls.Weights[0])
		if cols == 0 {
			return nil, 0, fmt.Errorf("%s layer %d: empty weights", name, i)
		}
		if width >= 0 && rows != width {
			return nil, 0, fmt.Errorf("%s layer %d: expects %d inputs, previous layer gives %d", name, i, rows, width)
		}
		if len(ls.Bias) != cols {
			return nil, 0, fmt.Errorf("%s layer %d: bias has %d entries, want %d", name, i, len(ls.Bias), cols)
		}
		if !knownActivation(ls.Activation) {
			return nil, 0, fmt.Errorf("%s layer %d: unknown activation %q", name, i, ls.Activation)
		}

		data := make([]float64, 0, rows*cols)
		for r, row := range ls.Weights {
			if len(row) != cols {
				return nil, 0, fmt.Errorf("%s layer %d: ragged weights at row %d", name, i, r)
			}
			data = append(data, row...)
		}
		bias := make([]float64, cols)
		copy(bias, ls.Bias)

		out = append(out, dense{w: mat.NewDense(rows, cols, data), b: bias, act: ls.Activation})
		width = cols
	}
	return out, width, nil
}

// InputWidth is the number of features the network expects.
func (n *Network) InputWidth() int { return n.inputs }

// Predict evaluates the network on a single row.
func (n *Network) Predict(_ context.Context, x mat.Matrix) (Output, error) {
	r, c := x.Dims()
	if r != 1 || c != n.inputs {
		return nil, fmt.Errorf("%w: got %dx%d, want 1x%d", ErrShapeMismatch, r, c, n.inputs)
	}

	h := mat.DenseCopyOf(x)
	for _, l := range n.trunk {
		h = l.forward(h)
	}

	if len(n.heads) == 0 {
		return fromArrays([][]float64{rowOf(h)})
	}

	scores := make([][]float64, 0, len(n.heads))
	for _, stack := range n.heads {
		o := h
		for _, l := range stack {
			o = l.forward(o)
		}
		scores = append(scores, rowOf(o))
	}
	return fromArrays(scores)
}

func (l dense) forward(x *mat.Dense) *mat.Dense {
	r, _ := x.Dims()
	_, c := l.w.Dims()
	out := mat.NewDense(r, c, nil)
	out.Mul(x, l.w)
	out.Apply(func(_, j int, v float64) float64 { return v + l.b[j] }, out)
	activate(l.act, out)
	return out
}

func knownActivation(name string) bool {
	switch name {
	case "", "linear", "relu", "sigmoid", "tanh", "softmax":
		return true
	}
	return false
}

func activate(name string, m *mat.Dense) {
	switch name {
	case "relu":
		m.Apply(func(_, _ int, v float64) float64 { return math.Max(0, v) }, m)
	case "sigmoid":
		m.Apply(func(_, _ int, v float64) float64 { return 1 / (1 + math.Exp(-v)) }, m)
	case "tanh":
		m.Apply(func(_, _ int, v float64) float64 { return math.Tanh(v) }, m)
	case "softmax":
		r, _ := m.Dims()
		for i := 0; i < r; i++ {
			softmax(m.RawRowView(i))
		}
	}
}

func softmax(row []float64) {
	peak := math.Inf(-1)
	for _, v := range row {
		peak = math.Max(peak, v)
	}
	var sum float64
	for i, v := range row {
		row[i] = math.Exp(v - peak)
		sum += row[i]
	}
	for i := range row {
		row[i] /= sum
	}
}

func rowOf(m *mat.Dense) []float64 {
	_, c := m.Dims()
	row := make([]float64, c)
	copy(row, m.RawRowView(0))
	return row
}
