package guides

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/wms-platform/vas-service/internal/domain"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	compileOnce sync.Once
	compiled    map[string]*jsonschema.Schema
	compileErr  error
)

// compileSchemas loads every embedded guide schema, keyed by guide type
func compileSchemas() (map[string]*jsonschema.Schema, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("failed to list guide schemas: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	uris := make(map[string]string, len(entries))
	for _, entry := range entries {
		data, err := schemaFS.ReadFile(path.Join("schemas", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read guide schema %s: %w", entry.Name(), err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse guide schema %s: %w", entry.Name(), err)
		}

		guideType := entry.Name()[:len(entry.Name())-len(path.Ext(entry.Name()))]
		uri := "vas://guides/" + guideType
		if err := compiler.AddResource(uri, doc); err != nil {
			return nil, fmt.Errorf("failed to add guide schema %s: %w", guideType, err)
		}
		uris[guideType] = uri
	}

	schemas := make(map[string]*jsonschema.Schema, len(uris))
	for guideType, uri := range uris {
		schema, err := compiler.Compile(uri)
		if err != nil {
			return nil, fmt.Errorf("failed to compile guide schema %s: %w", guideType, err)
		}
		schemas[guideType] = schema
	}
	return schemas, nil
}

func schemaFor(guideType string) (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled, compileErr = compileSchemas()
	})
	if compileErr != nil {
		return nil, compileErr
	}
	schema, ok := compiled[guideType]
	if !ok {
		return nil, fmt.Errorf("no schema for guide %s", guideType)
	}
	return schema, nil
}

// decodePayload validates raw against the guide's schema, then unmarshals it into out
func decodePayload(guideType string, raw json.RawMessage, out any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("%w: %s: payload is empty", domain.ErrInvalidGuidePayload, guideType)
	}

	schema, err := schemaFor(guideType)
	if err != nil {
		return err
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidGuidePayload, guideType, err)
	}
	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidGuidePayload, guideType, err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidGuidePayload, guideType, err)
	}
	return nil
}
