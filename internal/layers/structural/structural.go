// Package structural implements the schema validation layer: it calls
// the Schema Store and translates its findings into layer.Result.
package structural

import (
	"context"
	"encoding/json"

	"github.com/your-org/sow/internal/exitcode"
	"github.com/your-org/sow/internal/layer"
	"github.com/your-org/sow/internal/schema"
)

// Validate runs the schema layer against vc.Data, which must already be
// decoded (the runner owns file reads and JSON parsing).
func Validate(_ context.Context, vc *layer.Context) layer.Result {
	meta := layer.Metadata{FileType: vc.FileType}

	raw, err := json.Marshal(vc.Data)
	if err != nil {
		meta.ExitCode = int(exitcode.ValidationSchema)
		return layer.FailureResult(layer.NameSchema, []layer.Error{{
			Code:    "SCHEMA_INTERNAL_ERROR",
			Message: err.Error(),
		}}, nil, meta)
	}

	errs, err := schema.Get().Validate(vc.FileType, raw)
	if err != nil {
		meta.ExitCode = int(exitcode.ValidationSchema)
		return layer.FailureResult(layer.NameSchema, []layer.Error{{
			Code:    "SCHEMA_INTERNAL_ERROR",
			Message: err.Error(),
		}}, nil, meta)
	}

	if len(errs) == 0 {
		meta.ExitCode = int(exitcode.Success)
		return layer.SuccessResult(layer.NameSchema, nil, meta)
	}

	out := make([]layer.Error, len(errs))
	for i, e := range errs {
		out[i] = layer.Error{Code: e.Code, Message: e.Message, Path: e.Path}
	}
	meta.ExitCode = int(exitcode.ValidationSchema)
	return layer.FailureResult(layer.NameSchema, out, nil, meta)
}

// FileReadError builds the dedicated result the runner uses when it
// cannot read the file at all, before a layer ever sees it.
func FileReadError(filePath string, err error) layer.Result {
	return layer.FailureResult(layer.NameSchema, []layer.Error{{
		Code:    "SCHEMA_FILE_READ_ERROR",
		Message: err.Error(),
		Details: map[string]string{"filePath": filePath},
	}}, nil, layer.Metadata{ExitCode: int(exitcode.ValidationSchema)})
}

// ParseError builds the dedicated result the runner uses when the file
// reads but does not parse as JSON.
func ParseError(filePath string, err error) layer.Result {
	return layer.FailureResult(layer.NameSchema, []layer.Error{{
		Code:    "SCHEMA_PARSE_ERROR",
		Message: err.Error(),
		Details: map[string]string{"filePath": filePath},
	}}, nil, layer.Metadata{ExitCode: int(exitcode.ValidationSchema)})
}
