package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a sizing study from disk.
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	doc, err := Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a single YAML document. Unknown fields are rejected so
// a typo like max_weight never silently loosens an SLA. The document
// comes back with defaults applied and validated.
func Parse(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDocument
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	doc.applyDefaults()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}
