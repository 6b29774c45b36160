// Package docs carries the OpenAPI description of the HTTP API and registers
// it with swag so the swagger UI can load it.
package docs

import (
	_ "embed"

	"github.com/swaggo/swag"
)

// SwaggerJSON is the OpenAPI 2.0 document served at /swagger/doc.json
//
//go:embed swagger.json
var SwaggerJSON []byte

type spec struct{}

// ReadDoc implements swag.Swagger
func (spec) ReadDoc() string {
	return string(SwaggerJSON)
}

func init() {
	swag.Register(swag.Name, spec{})
}
