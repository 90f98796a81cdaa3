package classification

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Network is a linear softmax classifier over image color features. Small
// enough to ship as a JSON artifact next to the binary, expressive enough
// for ripeness, where surface color dominates the signal.
type Network struct {
	// Labels declares the raw output vocabulary. Row i of Weights produces
	// the score for Labels[i]; the order must match the kind's label table.
	Labels    []string    `json:"labels"`
	Weights   [][]float64 `json:"weights"`
	Biases    []float64   `json:"biases"`
	InputSize int         `json:"input_size"`
	Channels  int         `json:"channels"`
}

// LoadNetwork reads a model artifact from a JSON file
func LoadNetwork(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact: %w", err)
	}
	var n Network
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("failed to parse model artifact: %w", err)
	}
	if n.InputSize == 0 {
		n.InputSize = ModelInputSize
	}
	if n.Channels == 0 {
		n.Channels = ModelChannels
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return &n, nil
}

// Save persists the network to a JSON file
func (n *Network) Save(path string) error {
	data, err := json.MarshalIndent(n, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode model artifact: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the artifact's internal consistency
func (n *Network) Validate() error {
	if len(n.Labels) == 0 {
		return fmt.Errorf("model artifact declares no labels")
	}
	if len(n.Weights) != len(n.Labels) {
		return fmt.Errorf("model artifact has %d weight rows for %d labels", len(n.Weights), len(n.Labels))
	}
	if len(n.Biases) != len(n.Labels) {
		return fmt.Errorf("model artifact has %d biases for %d labels", len(n.Biases), len(n.Labels))
	}
	dim := len(n.Weights[0])
	if dim == 0 {
		return fmt.Errorf("model artifact has empty weight rows")
	}
	for i, row := range n.Weights {
		if len(row) != dim {
			return fmt.Errorf("model artifact weight row %d has %d values, want %d", i, len(row), dim)
		}
	}
	return nil
}

// FeatureDim returns the input width the network expects
func (n *Network) FeatureDim() int {
	if len(n.Weights) == 0 {
		return 0
	}
	return len(n.Weights[0])
}

// Scores runs the forward pass and returns softmax confidences, one per
// label in declared order. The returned values are in (0,1) and sum to 1.
func (n *Network) Scores(features []float64) ([]float64, error) {
	dim := n.FeatureDim()
	if len(features) != dim {
		return nil, fmt.Errorf("model expects %d features, got %d", dim, len(features))
	}

	logits := make([]float64, len(n.Weights))
	for i, row := range n.Weights {
		sum := n.Biases[i]
		for j, w := range row {
			sum += w * features[j]
		}
		logits[i] = sum
	}
	return softmax(logits), nil
}

// softmax normalizes logits into a probability distribution. The max is
// subtracted first so large logits cannot overflow Exp.
func softmax(logits []float64) []float64 {
	maxLogit := math.Inf(-1)
	for _, l := range logits {
		if l > maxLogit {
			maxLogit = l
		}
	}
	var total float64
	out := make([]float64, len(logits))
	for i, l := range logits {
		out[i] = math.Exp(l - maxLogit)
		total += out[i]
	}
	for i := range out {
		out[i] /= total
	}
	return out
}
