// Package docs registers the OpenAPI description served by gin-swagger.
// It follows the layout produced by `swag init -g cmd/server/main.go`;
// regenerate it after changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/clients/": {
            "get": {
                "description": "Returns every client ordered by id. Supports weak ETag via If-None-Match and may return 304.",
                "produces": ["application/json"],
                "tags": ["Clients"],
                "summary": "List clients",
                "operationId": "listClients",
                "parameters": [
                    {"type": "string", "description": "Return 304 if ETag matches", "name": "If-None-Match", "in": "header"}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Client"}},
                        "headers": {"ETag": {"type": "string", "description": "Weak ETag for current result"}}
                    },
                    "304": {"description": "Not Modified", "schema": {"type": "string"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "description": "Stores a new client. name, email, phone, case_type and status are required; notes is optional.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Clients"],
                "summary": "Create a client",
                "operationId": "createClient",
                "parameters": [
                    {"type": "string", "description": "Replay key for safe retries", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Client fields", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.ClientDraft"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.MessageResponse"}},
                    "400": {"description": "Invalid JSON or missing fields", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/clients/{id}": {
            "put": {
                "description": "Overwrites only the fields present in the body. notes may be null to clear it.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Clients"],
                "summary": "Update a client",
                "operationId": "updateClient",
                "parameters": [
                    {"minimum": 1, "type": "integer", "description": "Client ID", "name": "id", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.ClientPatch"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.MessageResponse"}},
                    "400": {"description": "Bad id or body", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Client not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["Clients"],
                "summary": "Delete a client",
                "operationId": "deleteClient",
                "parameters": [
                    {"minimum": 1, "type": "integer", "description": "Client ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.MessageResponse"}},
                    "400": {"description": "Bad id", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Client not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/send-update": {
            "post": {
                "description": "Relays one HTML email through SendGrid. email, subject and message are required; client_name defaults to \"Client\".",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Email"],
                "summary": "Send a notification email",
                "operationId": "sendUpdate",
                "parameters": [
                    {"type": "string", "description": "Replay key for safe retries", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Email payload", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.EmailRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.MessageResponse"}},
                    "400": {"description": "Invalid JSON or missing fields", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Provider rejected or unreachable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.Client": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"},
                "case_type": {"type": "string"},
                "status": {"type": "string"},
                "notes": {"type": "string"}
            }
        },
        "domain.ClientDraft": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "Jane Doe"},
                "email": {"type": "string", "example": "jane@x.com"},
                "phone": {"type": "string", "example": "555-1111"},
                "case_type": {"type": "string", "example": "Divorce"},
                "status": {"type": "string", "example": "active"},
                "notes": {"type": "string", "example": "Prefers email contact"}
            }
        },
        "domain.ClientPatch": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"},
                "case_type": {"type": "string"},
                "status": {"type": "string", "example": "closed"},
                "notes": {"type": "string"}
            }
        },
        "domain.EmailRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string", "example": "jane@x.com"},
                "subject": {"type": "string", "example": "Case update"},
                "message": {"type": "string", "example": "Your hearing is scheduled for Monday."},
                "client_name": {"type": "string", "example": "Jane Doe"}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"},
                "code": {"type": "string", "example": "not_found"},
                "error": {"type": "string", "example": "Client not found"}
            }
        },
        "handlers.MessageResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "Client added successfully"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Client Tracker API",
	Description:      "Client records for a legal practice and a SendGrid-backed notification relay.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
