package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Batch is one TAC export. Every collection is optional.
type Batch struct {
	Scenes   []Scene   `json:"scenes" yaml:"scenes"`
	Monsters []Monster `json:"monsters" yaml:"monsters"`
	Notes    []Note    `json:"notes" yaml:"notes"`
}

// Scene describes one playable map. Coordinates are in source-canvas units.
type Scene struct {
	Name     string  `json:"name" yaml:"name"`
	ImageURL string  `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
	Walls    []Wall  `json:"walls,omitempty" yaml:"walls,omitempty"`
	Lights   []Light `json:"lights,omitempty" yaml:"lights,omitempty"`
}

// Wall is a two-point line segment used for dynamic-lighting occlusion.
type Wall struct {
	StartX float64 `json:"startX" yaml:"startX"`
	StartY float64 `json:"startY" yaml:"startY"`
	EndX   float64 `json:"endX" yaml:"endX"`
	EndY   float64 `json:"endY" yaml:"endY"`
}

// Light is a point light source. Color is a hex string such as "#ffcc00".
type Light struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Radius float64 `json:"radius" yaml:"radius"`
	Color  string  `json:"color" yaml:"color"`
}

// Monster describes an NPC imported as a character.
type Monster struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	ImageURL    string `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
}

// Note describes a GM note imported as a handout.
type Note struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// ErrNotObject is returned when a payload's top level is not an object.
var ErrNotObject = errors.New("batch payload must be a JSON object")

// DecodeBatch parses a JSON import payload.
//
// Postcondition: Returns a Batch whose absent collections are empty, or an
// error when data is not a single well-formed JSON object.
func DecodeBatch(data []byte) (Batch, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Batch{}, ErrNotObject
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	var b Batch
	if err := dec.Decode(&b); err != nil {
		return Batch{}, fmt.Errorf("decoding batch: %w", err)
	}
	if dec.More() {
		return Batch{}, errors.New("decoding batch: trailing data after object")
	}
	return b, nil
}

// DecodeBatchYAML parses an import payload written as YAML. The field names
// are the same as the JSON form.
func DecodeBatchYAML(data []byte) (Batch, error) {
	var b Batch
	if err := yaml.Unmarshal(data, &b); err != nil {
		return Batch{}, fmt.Errorf("decoding yaml batch: %w", err)
	}
	return b, nil
}

// Len returns the total number of items in the batch.
func (b Batch) Len() int {
	return len(b.Scenes) + len(b.Monsters) + len(b.Notes)
}
