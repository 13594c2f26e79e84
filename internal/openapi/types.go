package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/leadbox/leadbox/internal/model"
)

// Component schema names.
const (
	ContactRequestSchema = "ContactRequest"
	StatusResponseSchema = "StatusResponse"
	HealthResponseSchema = "HealthResponse"
	LeadSchema           = "Lead"
)

func schemaRef(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, nil)
}

func boundedString(maxLen int, description string) *openapi3.SchemaRef {
	ml := uint64(maxLen)
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:        &openapi3.Types{"string"},
			MinLength:   1,
			MaxLength:   &ml,
			Description: description,
		},
	}
}

func enumString(description string, values ...string) *openapi3.SchemaRef {
	s := &openapi3.Schema{Type: &openapi3.Types{"string"}, Description: description}
	for _, v := range values {
		s.Enum = append(s.Enum, v)
	}
	return &openapi3.SchemaRef{Value: s}
}

// componentSchemas returns the shared request and response schemas.
func componentSchemas() openapi3.Schemas {
	return openapi3.Schemas{
		ContactRequestSchema: &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:     &openapi3.Types{"object"},
				Required: []string{"name", "phone", "message"},
				Properties: openapi3.Schemas{
					"name":    boundedString(model.MaxNameLength, "Contact name."),
					"phone":   boundedString(model.MaxPhoneLength, "Phone number, free form."),
					"message": boundedString(model.MaxMessageLength, "What the visitor wants."),
				},
			},
		},
		StatusResponseSchema: &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:     &openapi3.Types{"object"},
				Required: []string{"status"},
				Properties: openapi3.Schemas{
					"status": enumString("Outcome of the submission.",
						model.ResultSuccess, model.ResultError, model.ResultTooManyRequests),
				},
			},
		},
		HealthResponseSchema: &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type: &openapi3.Types{"object"},
				Properties: openapi3.Schemas{
					"status": &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
					"checks": &openapi3.SchemaRef{
						Value: &openapi3.Schema{
							Type: &openapi3.Types{"object"},
							AdditionalProperties: openapi3.AdditionalProperties{
								Schema: &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
							},
						},
					},
				},
			},
		},
		LeadSchema: &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type: &openapi3.Types{"object"},
				Properties: openapi3.Schemas{
					"id":         &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"}},
					"name":       &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
					"phone":      &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
					"message":    &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
					"status":     enumString("Triage status.", string(model.StatusNew), string(model.StatusContacted)),
					"created_at": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"}},
				},
			},
		},
	}
}
