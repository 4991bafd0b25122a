package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidationError is a single structural failure reported by the Schema
// Store, already translated from a JSON Schema keyword into one of the
// validator's SCHEMA_* codes.
type ValidationError struct {
	Code    string `json:"code"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Store compiles and caches the embedded JSON Schema documents. It is
// the structural layer's only dependency on the jsonschema package;
// everything above it deals exclusively in ValidationError.
type Store struct {
	mu      sync.RWMutex
	schemas map[FileType]*jsonschema.Schema
}

var (
	globalStore *Store
	once        sync.Once
)

// Get returns the process-wide Store, compiling schemas on first use.
func Get() *Store {
	once.Do(func() {
		globalStore = &Store{schemas: make(map[FileType]*jsonschema.Schema)}
	})
	return globalStore
}

// schema returns the compiled schema for ft, compiling and caching it on
// first request. Double-checked locking mirrors the teacher's validator
// cache.
func (s *Store) schema(ft FileType) (*jsonschema.Schema, error) {
	s.mu.RLock()
	if sch, ok := s.schemas[ft]; ok {
		s.mu.RUnlock()
		return sch, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if sch, ok := s.schemas[ft]; ok {
		return sch, nil
	}

	src, err := GetSchemaSource(ft)
	if err != nil {
		return nil, err
	}

	url := string(ft) + ".schema.json"
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	if err := c.AddResource(url, bytes.NewReader(src)); err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", ft, err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", ft, err)
	}

	s.schemas[ft] = sch
	return sch, nil
}

// Validate checks raw document bytes against the schema registered for
// ft. It returns a non-nil error only when the schema itself cannot be
// loaded or compiled (including an unknown ft); the structural layer
// reports that as SCHEMA_INTERNAL_ERROR. Document-level failures,
// malformed JSON included, are returned as a translated ValidationError
// slice with a nil error.
func (s *Store) Validate(ft FileType, data []byte) ([]ValidationError, error) {
	sch, err := s.schema(ft)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return []ValidationError{{
			Code:    "SCHEMA_PARSE_ERROR",
			Path:    "",
			Message: err.Error(),
		}}, nil
	}

	if err := sch.Validate(v); err != nil {
		verr, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return []ValidationError{{
				Code:    "SCHEMA_INTERNAL_ERROR",
				Path:    "",
				Message: err.Error(),
			}}, nil
		}
		return translate(verr), nil
	}

	return nil, nil
}

// translate walks a ValidationError tree and collects its leaf causes,
// each mapped from a JSON Schema keyword to a SCHEMA_* code. A leaf is a
// node with no further causes; non-leaf nodes (group wrappers such as
// "allOf"/"properties") carry no actionable keyword of their own.
func translate(verr *jsonschema.ValidationError) []ValidationError {
	var out []ValidationError
	var walk func(n *jsonschema.ValidationError)
	walk = func(n *jsonschema.ValidationError) {
		if len(n.Causes) > 0 {
			for _, c := range n.Causes {
				walk(c)
			}
			return
		}
		out = append(out, ValidationError{
			Code:    codeForKeyword(keywordOf(n.KeywordLocation)),
			Path:    n.InstanceLocation,
			Message: n.Message,
		})
	}
	walk(verr)
	if len(out) == 0 {
		// Defensive only: walk already records verr itself when it has
		// no causes, so out is not empty at this point.
		out = append(out, ValidationError{
			Code:    codeForKeyword(keywordOf(verr.KeywordLocation)),
			Path:    verr.InstanceLocation,
			Message: verr.Message,
		})
	}
	return out
}

// keywordOf extracts the final path segment of a keyword location, e.g.
// "/properties/tasks/items/required" -> "required".
func keywordOf(loc string) string {
	loc = strings.TrimSuffix(loc, "/")
	if i := strings.LastIndex(loc, "/"); i >= 0 {
		return loc[i+1:]
	}
	return loc
}

// codeForKeyword maps a JSON Schema keyword to the validator's closed
// SCHEMA_* code set. Unknown keywords still get a deterministic code so
// callers never see a bare jsonschema message as their only signal.
func codeForKeyword(keyword string) string {
	switch keyword {
	case "required":
		return "SCHEMA_MISSING_REQUIRED"
	case "type":
		return "SCHEMA_INVALID_TYPE"
	case "enum":
		return "SCHEMA_INVALID_ENUM"
	case "pattern":
		return "SCHEMA_INVALID_PATTERN"
	case "minLength":
		return "SCHEMA_TOO_SHORT"
	case "maxLength":
		return "SCHEMA_TOO_LONG"
	case "minimum", "exclusiveMinimum":
		return "SCHEMA_TOO_SMALL"
	case "maximum", "exclusiveMaximum":
		return "SCHEMA_TOO_LARGE"
	case "":
		return "SCHEMA_INVALID_DOCUMENT"
	default:
		return "SCHEMA_" + strings.ToUpper(keyword)
	}
}
