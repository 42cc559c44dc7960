// Package swagger holds the generated OpenAPI document served at /docs.
// Regenerate with `go generate ./internal/server`.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "Kage Maintainers",
            "url": "https://github.com/raysh454/kage"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/rules": {
            "get": {
                "produces": ["application/json"],
                "summary": "List detection rules",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/server.RuleInfo"}}
                    }
                }
            }
        },
        "/scans": {
            "get": {
                "produces": ["application/json"],
                "summary": "List scans",
                "parameters": [
                    {"type": "string", "description": "only scans of this URL", "name": "url", "in": "query"},
                    {"type": "integer", "description": "max records", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"type": "object"}}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Scan a page",
                "description": "Renders the URL, runs dark pattern detection and stores the report.",
                "parameters": [
                    {"description": "scan parameters", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.StartScanRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/scans/compare": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Compare two scans",
                "parameters": [
                    {"description": "scan IDs to compare", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.CompareScansRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/scans/{scanID}": {
            "get": {
                "produces": ["application/json"],
                "summary": "Get a scan report",
                "parameters": [
                    {"type": "string", "description": "scan ID", "name": "scanID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            },
            "delete": {
                "summary": "Delete a scan",
                "parameters": [
                    {"type": "string", "description": "scan ID", "name": "scanID", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/scans/{scanID}/summary": {
            "get": {
                "produces": ["application/json"],
                "summary": "Get a scan summary",
                "parameters": [
                    {"type": "string", "description": "scan ID", "name": "scanID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "server.CompareScansRequest": {
            "type": "object",
            "properties": {
                "base_id": {"type": "string", "example": "6e0c1a9e-8f3a-4b2f-9d7c-1a2b3c4d5e6f"},
                "head_id": {"type": "string", "example": "a1b2c3d4-e5f6-7a8b-9c0d-1e2f3a4b5c6d"}
            }
        },
        "server.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "not found"}
            }
        },
        "server.RuleInfo": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "confirmshaming-text"},
                "name": {"type": "string", "example": "Confirmshaming language"},
                "category": {"type": "string", "example": "confirmshaming"},
                "severity": {"type": "string", "example": "medium"}
            }
        },
        "server.StartScanRequest": {
            "type": "object",
            "properties": {
                "url": {"type": "string", "example": "https://shop.example.com/checkout"},
                "backend": {"type": "string", "example": "chromedp"},
                "scan_depth": {"type": "string", "example": "full"},
                "workers": {"type": "integer", "example": 4},
                "exclude_selectors": {"type": "array", "items": {"type": "string"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "0.1",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Kage API",
	Description:      "Interactive documentation for the Kage dark pattern scanner API.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
