package model

import (
	"context"
	"fmt"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

type Options struct {
	ModelPath    string
	MetadataPath string
	// LibraryPath points at the onnxruntime shared library. Empty uses the
	// platform default lookup.
	LibraryPath string
	// Workers is the number of sessions, i.e. how many inferences may run at
	// the same time.
	Workers int
}

// session binds one ONNX session to its own input and output buffers. A
// session must only be used by one goroutine at a time.
type session struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

func (s *session) destroy() {
	if s.session != nil {
		s.session.Destroy()
	}
	if s.inputTensor != nil {
		s.inputTensor.Destroy()
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
	}
}

// Server owns the loaded model. It is created once at startup and shared
// read-only by all requests.
type Server struct {
	Metadata Metadata

	sessions  chan *session
	all       []*session
	closeOnce sync.Once
}

// NewServer loads the model. Every failure wraps ErrModelLoad.
func NewServer(opts Options) (*Server, error) {
	metadata, err := LoadMetadata(opts.MetadataPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	if opts.LibraryPath != "" {
		ort.SetSharedLibraryPath(opts.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("%w: failed to initialize ONNX environment: %v", ErrModelLoad, err)
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	s := &Server{
		Metadata: metadata,
		sessions: make(chan *session, workers),
	}
	for i := 0; i < workers; i++ {
		sess, err := newSession(opts.ModelPath, metadata)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
		}
		s.all = append(s.all, sess)
		s.sessions <- sess
	}

	log.WithFields(log.Fields{
		"model":   opts.ModelPath,
		"workers": workers,
		"classes": len(metadata.Classes),
	}).Info("model loaded")

	return s, nil
}

func newSession(modelPath string, metadata Metadata) (*session, error) {
	inputShape := ort.NewShape(metadata.InputShape...)
	outputShape := ort.NewShape(metadata.OutputShape...)

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	sess, err := ort.NewAdvancedSession(modelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &session{
		session:      sess,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Predict runs one inference and returns a copy of the output vector. It
// blocks until a session is free; ctx only bounds that wait.
func (s *Server) Predict(ctx context.Context, inputData []float32) ([]float32, error) {
	if want := s.Metadata.InputSize(); len(inputData) != want {
		return nil, fmt.Errorf("expected %d input values, got %d", want, len(inputData))
	}

	var sess *session
	select {
	case sess = <-s.sessions:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { s.sessions <- sess }()

	copy(sess.inputTensor.GetData(), inputData)

	if err := sess.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	outputData := sess.outputTensor.GetData()
	out := make([]float32, len(outputData))
	copy(out, outputData)
	return out, nil
}

// Close releases every session and the ONNX environment. It must not be
// called while requests are still in flight.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		for _, sess := range s.all {
			sess.destroy()
		}
		if err := ort.DestroyEnvironment(); err != nil {
			log.WithError(err).Warn("failed to destroy ONNX environment")
		}
	})
}
