package model

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrModelLoad wraps every failure to load the model artifact at startup.
	ErrModelLoad = errors.New("failed to load model")
	// ErrModelUnavailable is returned by Classify when no model was loaded.
	ErrModelUnavailable = errors.New("model is not loaded")
)

// InferenceError is any failure after the model accepted the request: the
// runtime returned an error or panicked, or the output vector is unusable.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return "inference failed: " + e.Err.Error()
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

type Predictor interface {
	Predict(ctx context.Context, input []float32) ([]float32, error)
}

type Prediction struct {
	Index         int
	Label         string
	Probability   float32
	Probabilities map[string]float32
}

// Confidence is the winning probability as a percentage with two decimals.
func (p *Prediction) Confidence() string {
	return FormatConfidence(p.Probability)
}

// FormatConfidence renders a probability as e.g. "97.43%". Negative or NaN
// inputs render as "0.00%".
func FormatConfidence(p float32) string {
	v := float64(p) * 100
	if !(v > 0) {
		v = 0
	}
	return fmt.Sprintf("%.2f%%", v)
}

func Argmax(values []float32) int {
	maxIdx := 0
	for i, val := range values {
		if val > values[maxIdx] {
			maxIdx = i
		}
	}
	return maxIdx
}

func NewPrediction(probs []float32, classes []string) (*Prediction, error) {
	if len(probs) != len(classes) {
		return nil, &InferenceError{Err: fmt.Errorf("model returned %d values for %d classes", len(probs), len(classes))}
	}
	if len(probs) == 0 {
		return nil, &InferenceError{Err: errors.New("model returned an empty output")}
	}

	predictions := make(map[string]float32, len(probs))
	for i, val := range probs {
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return nil, &InferenceError{Err: fmt.Errorf("invalid probability %v for class %q", val, classes[i])}
		}
		predictions[classes[i]] = val
	}

	idx := Argmax(probs)
	return &Prediction{
		Index:         idx,
		Label:         classes[idx],
		Probability:   probs[idx],
		Probabilities: predictions,
	}, nil
}

// Classifier turns raw model output into a Prediction. The returned error is
// always one of ErrModelUnavailable or *InferenceError.
type Classifier struct {
	predictor Predictor
	classes   []string
}

// NewClassifier wraps p. A nil p yields a classifier that reports
// ErrModelUnavailable for every request.
func NewClassifier(p Predictor, classes []string) *Classifier {
	if len(classes) == 0 {
		classes = DefaultClassNames
	}
	return &Classifier{
		predictor: p,
		classes:   append([]string(nil), classes...),
	}
}

func (c *Classifier) Available() bool {
	return c != nil && c.predictor != nil
}

func (c *Classifier) Classes() []string {
	return append([]string(nil), c.classes...)
}

func (c *Classifier) Classify(ctx context.Context, input []float32) (pred *Prediction, err error) {
	if !c.Available() {
		return nil, ErrModelUnavailable
	}

	defer func() {
		if r := recover(); r != nil {
			pred = nil
			err = &InferenceError{Err: fmt.Errorf("panic during inference: %v", r)}
		}
	}()

	probs, err := c.predictor.Predict(ctx, input)
	if err != nil {
		return nil, &InferenceError{Err: err}
	}
	return NewPrediction(probs, c.classes)
}
