package httpadapter

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var openAPIDocument []byte

// apiSpec is the parsed API description. It is served at /openapi.json and
// its schemas validate request bodies.
type apiSpec struct {
	doc  *openapi3.T
	json []byte
}

func loadAPISpec(ctx context.Context) (*apiSpec, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPIDocument)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal openapi document: %w", err)
	}
	return &apiSpec{doc: doc, json: raw}, nil
}

// validateBody checks a decoded JSON value against a component schema.
func (s *apiSpec) validateBody(schemaName string, value any) error {
	if s.doc.Components == nil {
		return fmt.Errorf("schema %q not found", schemaName)
	}
	ref, ok := s.doc.Components.Schemas[schemaName]
	if !ok || ref.Value == nil {
		return fmt.Errorf("schema %q not found", schemaName)
	}
	if err := ref.Value.VisitJSON(value); err != nil {
		var schemaErr *openapi3.SchemaError
		if errors.As(err, &schemaErr) {
			return errors.New(schemaErr.Reason)
		}
		return err
	}
	return nil
}
