package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
)

// Artifact is the serialized form of a trained model: one weight vector and
// bias per label over a fixed grid of grayscale features. The file is treated
// as opaque and immutable for the process lifetime.
type Artifact struct {
	Labels   []string    `json:"labels"`
	GridSize int         `json:"grid_size"`
	Weights  [][]float64 `json:"weights"`
	Biases   []float64   `json:"biases"`
}

// Save persists the artifact to a JSON file.
func (a *Artifact) Save(path string) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (a *Artifact) validate() error {
	if len(a.Labels) == 0 {
		return fmt.Errorf("artifact has no labels")
	}
	if a.GridSize < 1 {
		return fmt.Errorf("invalid grid size: %d", a.GridSize)
	}
	if len(a.Weights) != len(a.Labels) || len(a.Biases) != len(a.Labels) {
		return fmt.Errorf("artifact has %d labels but %d weight vectors and %d biases",
			len(a.Labels), len(a.Weights), len(a.Biases))
	}
	want := a.GridSize * a.GridSize
	for i, w := range a.Weights {
		if len(w) != want {
			return fmt.Errorf("weight vector %d has %d entries, want %d", i, len(w), want)
		}
	}
	return nil
}

// Model is a linear classifier over downsampled grayscale image features.
// Weights are read-only after load, so a single Model may serve concurrent
// requests.
type Model struct {
	labels  []string
	grid    int
	weights [][]float64
	biases  []float64
}

// LoadModel reads and validates a model artifact. Any failure is wrapped in
// ErrModelUnavailable.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("%w: decode artifact: %v", ErrModelUnavailable, err)
	}
	if err := artifact.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	return &Model{
		labels:  artifact.Labels,
		grid:    artifact.GridSize,
		weights: artifact.Weights,
		biases:  artifact.Biases,
	}, nil
}

// Labels returns the closed set of categories the model can predict.
func (m *Model) Labels() []string {
	out := make([]string, len(m.labels))
	copy(out, m.labels)
	return out
}

// Classify decodes the JPEG at imagePath and returns the predicted label with
// the softmax distribution over all labels. The label is always the argmax of
// the distribution.
func (m *Model) Classify(ctx context.Context, imagePath string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, err := jpeg.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	features := m.features(img)
	logits := make([]float64, len(m.labels))
	for i := range m.labels {
		sum := m.biases[i]
		for j, w := range m.weights[i] {
			sum += w * features[j]
		}
		logits[i] = sum
	}

	probabilities := softmax(logits)
	best := 0
	for i, p := range probabilities {
		if p > probabilities[best] {
			best = i
		}
	}

	return &Result{Label: m.labels[best], Probabilities: probabilities}, nil
}

// features downsamples the image to a grid x grid matrix of normalized
// grayscale intensities, row-major.
func (m *Model) features(img image.Image) []float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	out := make([]float64, m.grid*m.grid)
	for row := 0; row < m.grid; row++ {
		for col := 0; col < m.grid; col++ {
			x := bounds.Min.X + col*width/m.grid
			y := bounds.Min.Y + row*height/m.grid
			gray := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			out[row*m.grid+col] = float64(gray.Y) / 255.0
		}
	}
	return out
}

func softmax(logits []float64) []float64 {
	max := logits[0]
	for _, l := range logits[1:] {
		if l > max {
			max = l
		}
	}

	out := make([]float64, len(logits))
	var total float64
	for i, l := range logits {
		out[i] = math.Exp(l - max)
		total += out[i]
	}
	for i := range out {
		out[i] /= total
	}
	return out
}
