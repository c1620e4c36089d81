package api

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
        "/health": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/decode": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/x-bencode"],
                "produces": ["application/json"],
                "tags": ["codec"],
                "summary": "Decode bencode",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.DecodeResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/encode": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/x-bencode"],
                "tags": ["codec"],
                "summary": "Encode JSON",
                "responses": {
                    "200": {"description": "Bencoded value"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/validate": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/x-bencode"],
                "produces": ["application/json"],
                "tags": ["codec"],
                "summary": "Validate bencode",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.ValidateResponse"}}}
            }
        },
        "/documents": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "List documents",
                "parameters": [{"type": "integer", "description": "Maximum number of ids", "name": "limit", "in": "query"}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/x-bencode"],
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Store a document",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.DocumentResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/documents/{id}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json", "application/x-bencode"],
                "tags": ["documents"],
                "summary": "Get a document",
                "parameters": [
                    {"type": "string", "description": "Document id", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "json (default) or raw", "name": "format", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.DocumentResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            },
            "put": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/x-bencode"],
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Replace a document",
                "parameters": [{"type": "string", "description": "Document id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.DocumentResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            },
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Delete a document",
                "parameters": [{"type": "string", "description": "Document id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/stats": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Store statistics",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/storage.Stats"}}}
            }
        }
    },
    "definitions": {
        "api.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {},
                "error": {"type": "string"},
                "offset": {"type": "integer"}
            }
        },
        "api.DecodeResponse": {
            "type": "object",
            "properties": {
                "value": {},
                "kind": {"type": "string"},
                "canonical": {"type": "boolean"}
            }
        },
        "api.ValidateResponse": {
            "type": "object",
            "properties": {
                "valid": {"type": "boolean"},
                "canonical": {"type": "boolean"},
                "kind": {"type": "string"},
                "error": {"type": "string"},
                "offset": {"type": "integer"}
            }
        },
        "api.DocumentResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "kind": {"type": "string"},
                "size": {"type": "integer"},
                "value": {}
            }
        },
        "storage.Stats": {
            "type": "object",
            "properties": {
                "documents": {"type": "integer"},
                "bytes": {"type": "integer"},
                "corrupt": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "name": "X-API-Key",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "bencodec REST API",
	Description:      "Decode, encode, validate and store bencoded documents.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
