package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Brownie44l1/hairscan/internal/advice"
	"github.com/Brownie44l1/hairscan/internal/imageprep"
	"github.com/Brownie44l1/hairscan/internal/metrics"
	"github.com/Brownie44l1/hairscan/internal/model"
)

// Result is what gets rendered for a successful prediction. Results may be
// shared through the cache and must be treated as read-only.
type Result struct {
	ClassName     string             `json:"class_name" yaml:"class_name"`
	Confidence    string             `json:"confidence" yaml:"confidence"`
	Remedies      []string           `json:"remedies" yaml:"remedies"`
	Cautions      []string           `json:"cautions" yaml:"cautions"`
	Probabilities map[string]float32 `json:"probabilities,omitempty" yaml:"probabilities,omitempty"`
}

type Pipeline struct {
	prep       *imageprep.Preprocessor
	classifier *model.Classifier
	advice     *advice.Table
	cache      *lru.Cache[string, *Result]
}

// New wires the stages together. cacheSize bounds the number of results kept
// by upload digest; zero disables caching.
func New(prep *imageprep.Preprocessor, classifier *model.Classifier, table *advice.Table, cacheSize int) (*Pipeline, error) {
	p := &Pipeline{
		prep:       prep,
		classifier: classifier,
		advice:     table,
	}
	if cacheSize > 0 {
		cache, err := lru.New[string, *Result](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create result cache: %w", err)
		}
		p.cache = cache
	}
	return p, nil
}

func (p *Pipeline) Available() bool {
	return p.classifier.Available()
}

func (p *Pipeline) Classes() []string {
	return p.classifier.Classes()
}

// Run returns imageprep.ErrDecode, model.ErrModelUnavailable or a
// *model.InferenceError on failure. Only successes are cached.
func (p *Pipeline) Run(ctx context.Context, upload imageprep.Upload) (*Result, error) {
	var key string
	if p.cache != nil {
		key = upload.Digest()
		if res, ok := p.cache.Get(key); ok {
			metrics.CacheHitsTotal.Inc()
			return res, nil
		}
	}

	tensor, err := p.prep.Tensor(bytes.NewReader(upload.Data))
	if err != nil {
		return nil, err
	}

	start := time.Now()
	pred, err := p.classifier.Classify(ctx, tensor.Data)
	if err != nil {
		return nil, err
	}
	metrics.InferenceDuration.Observe(time.Since(start).Seconds())

	entry := p.advice.Lookup(pred.Label)
	res := &Result{
		ClassName:     pred.Label,
		Confidence:    pred.Confidence(),
		Remedies:      entry.Remedies,
		Cautions:      entry.Cautions,
		Probabilities: pred.Probabilities,
	}

	if p.cache != nil {
		p.cache.Add(key, res)
	}
	return res, nil
}
