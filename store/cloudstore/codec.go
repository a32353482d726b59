package cloudstore

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/brunoga/confedit/model"
)

// payload is the YAML body of a stored version.
type payload struct {
	Document *model.Document `yaml:"document"`
	Files    []filePayload   `yaml:"files,omitempty"`
	Warnings []model.Warning `yaml:"warnings,omitempty"`
}

type filePayload struct {
	Path    string `yaml:"path"`
	Content string `yaml:"content,omitempty"`
}

func encode(doc *model.Document, files []model.File, warnings []model.Warning) ([]byte, error) {
	p := payload{Document: doc, Warnings: warnings}
	for _, f := range files {
		p.Files = append(p.Files, filePayload{Path: f.Path, Content: string(f.Content)})
	}
	b, err := yaml.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return b, nil
}

func decode(body []byte, version string) (*model.Snapshot, error) {
	var p payload
	if err := yaml.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	s := &model.Snapshot{
		Document: p.Document,
		Warnings: p.Warnings,
		Version:  version,
	}
	for _, f := range p.Files {
		s.Files = append(s.Files, model.File{Path: f.Path, Content: []byte(f.Content)})
	}
	return s, nil
}
