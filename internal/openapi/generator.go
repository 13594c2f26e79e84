package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// Generate builds the OpenAPI 3.1 document for the machine-facing endpoints:
// the public contact API, the health probes and the backup trigger. The
// HTML admin pages are not described.
func Generate(version, baseURL string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "Leadbox API",
			Description: "Public lead capture and operational endpoints.",
			Version:     version,
		},
		Servers: openapi3.Servers{
			{URL: baseURL},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = componentSchemas()
	components.SecuritySchemes = openapi3.SecuritySchemes{
		"backupKey": &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{
				Type: "apiKey",
				In:   "query",
				Name: "key",
			},
		},
	}
	doc.Components = &components
	doc.Paths = openapi3.NewPaths()

	doc.Paths.Set("/contact", &openapi3.PathItem{Post: contactOperation()})
	doc.Paths.Set("/healthz", &openapi3.PathItem{Get: healthOperation("healthz", "Liveness probe", false)})
	doc.Paths.Set("/readyz", &openapi3.PathItem{Get: healthOperation("readyz", "Readiness probe", true)})
	doc.Paths.Set("/admin/backup", &openapi3.PathItem{Get: backupOperation()})

	return doc
}

// ─── Operation Builders ─────────────────────────────────────────────────────

func contactOperation() *openapi3.Operation {
	status := schemaRef(StatusResponseSchema)
	responses := openapi3.NewResponses()
	setJSONResponse(responses, "200", "Lead stored", status)
	setJSONResponse(responses, "400", "Missing, empty or oversized field, or body is not JSON", status)
	setJSONResponse(responses, "429", "Submitted again within the cooldown window", status)
	setJSONResponse(responses, "500", "Lead could not be stored", status)

	return &openapi3.Operation{
		Tags:        []string{"leads"},
		Summary:     "Submit a contact request",
		Description: "Stores a lead. Each client IP may submit once per cooldown window.",
		OperationID: "submit_contact",
		RequestBody: &openapi3.RequestBodyRef{
			Value: &openapi3.RequestBody{
				Description: "Contact form fields",
				Required:    true,
				Content:     openapi3.NewContentWithJSONSchemaRef(schemaRef(ContactRequestSchema)),
			},
		},
		Responses: responses,
	}
}

func healthOperation(id, summary string, canFail bool) *openapi3.Operation {
	health := schemaRef(HealthResponseSchema)
	responses := openapi3.NewResponses()
	setJSONResponse(responses, "200", "Healthy", health)
	if canFail {
		setJSONResponse(responses, "503", "A dependency is unavailable", health)
	}
	return &openapi3.Operation{
		Tags:        []string{"system"},
		Summary:     summary,
		OperationID: id,
		Responses:   responses,
	}
}

func backupOperation() *openapi3.Operation {
	responses := openapi3.NewResponses()
	setTextResponse(responses, "200", "Backup started in the background")
	setTextResponse(responses, "403", "Key missing or wrong")

	return &openapi3.Operation{
		Tags:        []string{"system"},
		Summary:     "Trigger an email backup of all leads",
		Description: "Returns immediately. Delivery happens in the background and is only logged.",
		OperationID: "trigger_backup",
		Parameters: openapi3.Parameters{
			&openapi3.ParameterRef{
				Value: openapi3.NewQueryParameter("key").
					WithDescription("Pre-shared backup key.").
					WithRequired(true).
					WithSchema(openapi3.NewStringSchema()),
			},
		},
		Security:  &openapi3.SecurityRequirements{{"backupKey": {}}},
		Responses: responses,
	}
}

// ─── Response Helpers ───────────────────────────────────────────────────────

func setJSONResponse(responses *openapi3.Responses, code, description string, schema *openapi3.SchemaRef) {
	desc := description
	responses.Set(code, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &desc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})
}

func setTextResponse(responses *openapi3.Responses, code, description string) {
	desc := description
	responses.Set(code, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &desc,
			Content:     openapi3.NewContentWithSchema(openapi3.NewStringSchema(), []string{"text/plain"}),
		},
	})
}
