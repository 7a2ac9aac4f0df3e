package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultClassNames is the class order the bundled model was trained with.
// Keras flow_from_directory sorts the dataset folders alphabetically, so this
// list must stay alphabetical and in lock-step with the model output vector.
var DefaultClassNames = []string{
	"Alopecia Areata",
	"Contact Dermatitis",
	"Folliculitis",
	"Head Lice",
	"Healthy Hair",
	"Lichen Planus",
	"Male Pattern Baldness",
	"Psoriasis",
	"Seborrheic Dermatitis",
	"Telogen Effluvium",
	"Tinea Capitis",
}

const defaultImageSize = 224

type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
	InputName   string   `json:"input_name"`
	OutputName  string   `json:"output_name"`
}

func DefaultMetadata() Metadata {
	m := Metadata{}
	m.applyDefaults()
	return m
}

// LoadMetadata reads a metadata JSON file. An empty path yields DefaultMetadata.
func LoadMetadata(path string) (Metadata, error) {
	if path == "" {
		return DefaultMetadata(), nil
	}

	metaFile, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(metaFile, &metadata); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}
	metadata.applyDefaults()

	if err := metadata.Validate(); err != nil {
		return Metadata{}, err
	}
	return metadata, nil
}

func (m *Metadata) applyDefaults() {
	if len(m.Classes) == 0 {
		m.Classes = append([]string(nil), DefaultClassNames...)
	}
	if m.ImageSize == 0 {
		if len(m.InputShape) == 4 && m.InputShape[1] > 0 {
			m.ImageSize = int(m.InputShape[1])
		} else {
			m.ImageSize = defaultImageSize
		}
	}
	if len(m.InputShape) == 0 {
		m.InputShape = []int64{1, int64(m.ImageSize), int64(m.ImageSize), 3}
	}
	if len(m.OutputShape) == 0 {
		m.OutputShape = []int64{1, int64(len(m.Classes))}
	}
	if m.InputName == "" {
		m.InputName = "input"
	}
	if m.OutputName == "" {
		m.OutputName = "output"
	}
}

// Validate checks that the tensor shapes agree with the class list.
func (m Metadata) Validate() error {
	if len(m.InputShape) != 4 || m.InputShape[0] != 1 || m.InputShape[3] != 3 {
		return fmt.Errorf("input shape must be [1, H, W, 3], got %v", m.InputShape)
	}
	if m.InputShape[1] != int64(m.ImageSize) || m.InputShape[2] != int64(m.ImageSize) {
		return fmt.Errorf("input shape %v does not match image size %d", m.InputShape, m.ImageSize)
	}
	if len(m.OutputShape) == 0 || m.OutputShape[len(m.OutputShape)-1] != int64(len(m.Classes)) {
		return fmt.Errorf("output shape %v does not match %d classes", m.OutputShape, len(m.Classes))
	}
	return nil
}

func (m Metadata) InputSize() int {
	n := 1
	for _, d := range m.InputShape {
		n *= int(d)
	}
	return n
}
