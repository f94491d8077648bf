// Package collection reads a collection input file: the list of documents
// to analyze together with the persona and job-to-be-done.
package collection

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/dgallion1/docintel/internal/pipeline"
)

const schemaURL = "https://docintel.local/schemas/collection.json"

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// Collection is a validated input file.
type Collection struct {
	Documents   []string
	Persona     string
	JobToBeDone string
}

type rawCollection struct {
	Documents   []json.RawMessage `json:"documents"`
	Persona     json.RawMessage   `json:"persona"`
	JobToBeDone json.RawMessage   `json:"job_to_be_done"`
}

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("parse collection schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("add collection schema: %w", err)
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// Load reads and validates a collection file.
func Load(path string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read collection: %w", err)
	}
	return Parse(data)
}

// Parse validates data against the collection schema and flattens the
// string-or-object fields.
func Parse(data []byte) (*Collection, error) {
	sch, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse collection: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return nil, fmt.Errorf("invalid collection at %s: %w", instancePath(verr), err)
		}
		return nil, fmt.Errorf("invalid collection: %w", err)
	}

	var raw rawCollection
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse collection: %w", err)
	}
	c := &Collection{Documents: make([]string, 0, len(raw.Documents))}
	for _, d := range raw.Documents {
		name, err := stringOr(d, "filename")
		if err != nil {
			return nil, fmt.Errorf("parse documents: %w", err)
		}
		c.Documents = append(c.Documents, name)
	}
	if c.Persona, err = stringOr(raw.Persona, "role"); err != nil {
		return nil, fmt.Errorf("parse persona: %w", err)
	}
	if c.JobToBeDone, err = stringOr(raw.JobToBeDone, "task"); err != nil {
		return nil, fmt.Errorf("parse job_to_be_done: %w", err)
	}
	return c, nil
}

// stringOr decodes either a bare string or an object holding the string
// under field.
func stringOr(msg json.RawMessage, field string) (string, error) {
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(msg, &obj); err != nil {
		return "", err
	}
	if err := json.Unmarshal(obj[field], &s); err != nil {
		return "", fmt.Errorf("field %s: %w", field, err)
	}
	return strings.TrimSpace(s), nil
}

func instancePath(verr *jsonschema.ValidationError) string {
	// The top-level error carries the root location; the cause names the
	// offending field.
	for len(verr.Causes) > 0 && len(verr.InstanceLocation) == 0 {
		verr = verr.Causes[0]
	}
	if len(verr.InstanceLocation) == 0 {
		return "$"
	}
	return "$." + strings.Join(verr.InstanceLocation, ".")
}

// ReadInputs loads every listed document from dir. Documents that cannot be
// read are logged and returned in missing; the rest keep the listed order.
func (c *Collection) ReadInputs(dir string, log *slog.Logger) (inputs []pipeline.Input, missing []string) {
	inputs = make([]pipeline.Input, 0, len(c.Documents))
	for _, name := range c.Documents {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("document not readable, skipping", "document", name, "error", err)
			missing = append(missing, name)
			continue
		}
		inputs = append(inputs, pipeline.Input{Name: name, Data: data})
	}
	return inputs, missing
}
