// Package content loads the authored game content: garden templates and the
// conversation script.
package content

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"gnome-garden/application/ports"
	"gnome-garden/domain/dialogue"
	"gnome-garden/domain/garden"
)

// HostingPlaceholder is replaced with the canvas hosting URL in every speech
// string, so sound cues can point at hosted audio.
const HostingPlaceholder = "<hosting-url>"

var ErrUnsupportedFormat = errors.New("unsupported content format")

//go:embed default.yaml
var defaultDocument []byte

// Document is the on-disk shape of a content file.
type Document struct {
	Templates       []garden.Template `json:"templates" yaml:"templates" validate:"required,min=1,dive"`
	dialogue.Script `yaml:",inline"`
}

// Format is a content file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf picks the encoding from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Parse decodes and validates a content document. hostingURL replaces
// HostingPlaceholder.
func Parse(data []byte, format Format, hostingURL string) (*ports.Content, error) {
	var doc Document
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return Build(doc, hostingURL)
}

// Build validates a decoded document and turns it into runtime content.
func Build(doc Document, hostingURL string) (*ports.Content, error) {
	if err := validatorInstance().Struct(doc); err != nil {
		return nil, fmt.Errorf("invalid content: %w", err)
	}
	if err := doc.Script.Validate(); err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}
	templates, err := garden.NewTemplateCatalog(doc.Templates)
	if err != nil {
		return nil, fmt.Errorf("invalid templates: %w", err)
	}

	script := doc.Script
	if script.Lines == nil {
		script.Lines = map[string]dialogue.Line{}
	}
	if script.Variants == nil {
		script.Variants = map[string][]string{}
	}
	if script.Sounds == nil {
		script.Sounds = map[string]string{}
	}
	script.Expand(HostingPlaceholder, strings.TrimSuffix(hostingURL, "/"))

	return &ports.Content{Templates: templates, Script: &script}, nil
}

// Load reads a content file, choosing the decoder by extension.
func Load(path, hostingURL string) (*ports.Content, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content %s: %w", path, err)
	}
	return Parse(data, format, hostingURL)
}

// Default returns the content shipped with the binary.
func Default(hostingURL string) (*ports.Content, error) {
	return Parse(defaultDocument, FormatYAML, hostingURL)
}
