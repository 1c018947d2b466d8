package classifier

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func testArtifact() *Artifact {
	// Weight vectors chosen so a bright image favors "earthquake" and a dark
	// image favors "flood".
	return &Artifact{
		Labels:   []string{"earthquake", "flood", "wildfire"},
		GridSize: 2,
		Weights: [][]float64{
			{2.0, 2.0, 2.0, 2.0},
			{-2.0, -2.0, -2.0, -2.0},
			{0.1, 0.1, 0.1, 0.1},
		},
		Biases: []float64{0.0, 0.5, 0.0},
	}
}

func writeArtifact(t *testing.T, artifact *Artifact) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	if err := artifact.Save(path); err != nil {
		t.Fatalf("failed to save artifact: %v", err)
	}
	return path
}

func writeJPEG(t *testing.T, brightness uint8) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = brightness
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}

	path := filepath.Join(t.TempDir(), "image.jpg")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("failed to write jpeg: %v", err)
	}
	return path
}

func TestLoadModelMissingArtifact(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestLoadModelRejectsMalformedArtifact(t *testing.T) {
	artifact := testArtifact()
	artifact.Weights = artifact.Weights[:1]

	_, err := LoadModel(writeArtifact(t, artifact))
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable for mismatched weights, got %v", err)
	}
}

func TestClassifyReturnsDistribution(t *testing.T) {
	model, err := LoadModel(writeArtifact(t, testArtifact()))
	if err != nil {
		t.Fatalf("failed to load model: %v", err)
	}

	result, err := model.Classify(context.Background(), writeJPEG(t, 250))
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}

	if len(result.Probabilities) != 3 {
		t.Fatalf("expected 3 probabilities, got %d", len(result.Probabilities))
	}

	var sum float64
	best := 0
	for i, p := range result.Probabilities {
		if p < 0 || p > 1 {
			t.Errorf("probability %d out of range: %f", i, p)
		}
		if p > result.Probabilities[best] {
			best = i
		}
		sum += p
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("probabilities sum to %f, want 1", sum)
	}

	if result.Label != model.Labels()[best] {
		t.Errorf("label %q is not the argmax label %q", result.Label, model.Labels()[best])
	}
	if result.Label != "earthquake" {
		t.Errorf("expected bright image to classify as earthquake, got %q", result.Label)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	model, err := LoadModel(writeArtifact(t, testArtifact()))
	if err != nil {
		t.Fatalf("failed to load model: %v", err)
	}

	path := writeJPEG(t, 40)
	first, err := model.Classify(context.Background(), path)
	if err != nil {
		t.Fatalf("first classify failed: %v", err)
	}
	second, err := model.Classify(context.Background(), path)
	if err != nil {
		t.Fatalf("second classify failed: %v", err)
	}

	if first.Label != second.Label {
		t.Fatalf("labels differ: %q vs %q", first.Label, second.Label)
	}
	for i := range first.Probabilities {
		if first.Probabilities[i] != second.Probabilities[i] {
			t.Fatalf("probability %d differs: %f vs %f", i, first.Probabilities[i], second.Probabilities[i])
		}
	}
}

func TestClassifyRejectsNonJPEGContent(t *testing.T) {
	model, err := LoadModel(writeArtifact(t, testArtifact()))
	if err != nil {
		t.Fatalf("failed to load model: %v", err)
	}

	path := filepath.Join(t.TempDir(), "not-an-image.jpg")
	if err := os.WriteFile(path, []byte("plain text"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if _, err := model.Classify(context.Background(), path); err == nil {
		t.Fatal("expected decode error for non-JPEG content")
	}
}
