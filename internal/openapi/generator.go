package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// Generate builds the OpenAPI 3.1 document for the Shelf catalog API.
// The API surface is fixed, so the document is assembled statically.
func Generate(baseURL string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "Shelf API",
			Description: "REST API for the Shelf product catalog: public catalog reads, admin-gated catalog writes, and admin account management.",
			Version:     "1.0.0",
		},
	}
	if baseURL != "" {
		doc.Servers = openapi3.Servers{{URL: baseURL}}
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}

	doc.Components.Schemas["Product"] = productSchema()
	doc.Components.Schemas["Admin"] = adminSchema()
	doc.Components.Schemas["LoginResponse"] = loginResponseSchema()
	doc.Components.Schemas["ErrorResponse"] = errorResponseSchema()

	doc.Paths = openapi3.NewPaths()
	addProductPaths(doc)
	addAdminPaths(doc)

	return doc
}

func addProductPaths(doc *openapi3.T) {
	productRef := "#/components/schemas/Product"

	doc.Paths.Set("/api/products", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"products"},
			Summary:     "List products",
			Description: "Retrieve all catalog products in insertion order.",
			OperationID: "list_products",
			Responses: newResponses("200", "List of products", &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type:  &openapi3.Types{"array"},
					Items: openapi3.NewSchemaRef(productRef, nil),
				},
			}),
		},
		Post: &openapi3.Operation{
			Tags:        []string{"products"},
			Summary:     "Create a product",
			Description: "Create a catalog product from a multipart form. The optional image part accepts jpg, jpeg, and png files up to 5 MiB.",
			OperationID: "create_product",
			Security:    bearerSecurity(),
			RequestBody: productFormBody(true),
			Responses:   newResponses("201", "Created product", openapi3.NewSchemaRef(productRef, nil)),
		},
	})

	idParam := &openapi3.ParameterRef{
		Value: openapi3.NewPathParameter("id").
			WithDescription("Product identifier.").
			WithSchema(&openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"}),
	}

	doc.Paths.Set("/api/products/{id}", &openapi3.PathItem{
		Parameters: openapi3.Parameters{idParam},
		Get: &openapi3.Operation{
			Tags:        []string{"products"},
			Summary:     "Get a product",
			OperationID: "get_product",
			Responses:   newResponses("200", "The product", openapi3.NewSchemaRef(productRef, nil)),
		},
		Put: &openapi3.Operation{
			Tags:        []string{"products"},
			Summary:     "Update a product",
			Description: "Partially update a product from a multipart form. Omitted fields keep their current values; a new image replaces the old one.",
			OperationID: "update_product",
			Security:    bearerSecurity(),
			RequestBody: productFormBody(false),
			Responses:   newResponses("200", "Updated product", openapi3.NewSchemaRef(productRef, nil)),
		},
		Delete: &openapi3.Operation{
			Tags:        []string{"products"},
			Summary:     "Delete a product",
			Description: "Remove a product and its stored image.",
			OperationID: "delete_product",
			Security:    bearerSecurity(),
			Responses: newResponses("200", "Deletion confirmation", &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type: &openapi3.Types{"object"},
					Properties: openapi3.Schemas{
						"message": &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
					},
				},
			}),
		},
	})
}

func addAdminPaths(doc *openapi3.T) {
	adminRef := "#/components/schemas/Admin"

	credentialsSchema := &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"email":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "email"}},
				"password": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "password"}},
			},
			Required: []string{"email", "password"},
		},
	}

	registerSchema := &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"email":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "email"}},
				"password": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "password", MinLength: 8}},
				"name":     &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
			},
			Required: []string{"email", "password"},
		},
	}

	doc.Paths.Set("/api/admin/register", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"admin"},
			Summary:     "Register an admin account",
			OperationID: "register_admin",
			RequestBody: &openapi3.RequestBodyRef{
				Value: &openapi3.RequestBody{
					Required: true,
					Content:  openapi3.NewContentWithJSONSchemaRef(registerSchema),
				},
			},
			Responses: newResponses("201", "Created admin", openapi3.NewSchemaRef(adminRef, nil)),
		},
	})

	doc.Paths.Set("/api/admin/login", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"admin"},
			Summary:     "Log in",
			Description: "Exchange admin credentials for a bearer token.",
			OperationID: "login_admin",
			RequestBody: &openapi3.RequestBodyRef{
				Value: &openapi3.RequestBody{
					Required: true,
					Content:  openapi3.NewContentWithJSONSchemaRef(credentialsSchema),
				},
			},
			Responses: newResponses("200", "Issued token", openapi3.NewSchemaRef("#/components/schemas/LoginResponse", nil)),
		},
	})

	doc.Paths.Set("/api/admin/profile", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"admin"},
			Summary:     "Get the authenticated admin's profile",
			OperationID: "admin_profile",
			Security:    bearerSecurity(),
			Responses:   newResponses("200", "The admin profile", openapi3.NewSchemaRef(adminRef, nil)),
		},
	})

	doc.Paths.Set("/api/admin/verify", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"admin"},
			Summary:     "Verify a bearer token",
			OperationID: "verify_token",
			Security:    bearerSecurity(),
			Responses: newResponses("200", "Token validity confirmation", &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type: &openapi3.Types{"object"},
					Properties: openapi3.Schemas{
						"message": &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
						"admin":   &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
					},
				},
			}),
		},
	})
}

// productFormBody describes the multipart form used by product writes.
// On create the text fields are required; on update everything is optional.
func productFormBody(requireFields bool) *openapi3.RequestBodyRef {
	schema := &openapi3.Schema{
		Type: &openapi3.Types{"object"},
		Properties: openapi3.Schemas{
			"name":        &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
			"description": &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
			"price":       &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Description: "Decimal price, e.g. \"9.99\"."}},
			"image":       &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "binary", Description: "Product image (jpg, jpeg, or png; max 5 MiB)."}},
		},
	}
	if requireFields {
		schema.Required = []string{"name", "description", "price"}
	}

	return &openapi3.RequestBodyRef{
		Value: &openapi3.RequestBody{
			Required: true,
			Content: openapi3.Content{
				"multipart/form-data": &openapi3.MediaType{
					Schema: &openapi3.SchemaRef{Value: schema},
				},
			},
		},
	}
}

func productSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"id":          &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64", ReadOnly: true}},
				"name":        &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
				"description": &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
				"price":       &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"number"}, Format: "double"}},
				"image":       &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Nullable: true, Description: "Absolute URL of the product image, or null."}},
				"created_at":  &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time", ReadOnly: true}},
				"updated_at":  &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time", ReadOnly: true}},
			},
		},
	}
}

func adminSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"id":            &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64", ReadOnly: true}},
				"email":         &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "email"}},
				"name":          &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
				"last_login_at": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time", Nullable: true}},
				"created_at":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time", ReadOnly: true}},
				"updated_at":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time", ReadOnly: true}},
			},
		},
	}
}

func loginResponseSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"token":      &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
				"token_type": &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
				"expires_in": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64", Description: "Token lifetime in seconds."}},
				"admin_id":   &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"}},
				"email":      &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
				"name":       &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
			},
		},
	}
}

func errorResponseSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"code":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
							"message": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
						},
					},
				},
			},
		},
	}
}

func bearerSecurity() *openapi3.SecurityRequirements {
	return &openapi3.SecurityRequirements{{"bearerAuth": {}}}
}

// newResponses builds a Responses map with a success response and the standard
// error responses shared by every endpoint.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef) *openapi3.Responses {
	responses := openapi3.NewResponses()

	successDesc := description
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &successDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	errorRef := openapi3.NewSchemaRef("#/components/schemas/ErrorResponse", nil)

	badReqDesc := "Bad request"
	responses.Set("400", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &badReqDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
		},
	})

	unauthDesc := "Unauthorized"
	responses.Set("401", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &unauthDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
		},
	})

	notFoundDesc := "Not found"
	responses.Set("404", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &notFoundDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
		},
	})

	serverErrDesc := "Internal server error"
	responses.Set("500", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &serverErrDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
		},
	})

	return responses
}
