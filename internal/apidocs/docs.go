// Package apidocs registers the suggestd OpenAPI document with swag so the
// swagger-tagged server build can serve it under /swagger/.
package apidocs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {"name": "suggestd maintainers"},
        "license": {"name": "MIT", "url": "https://opensource.org/licenses/MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/v1/suggest": {
            "post": {
                "description": "Returns a short continuation for the text before the cursor. Provider failures degrade to a heuristic fallback with status 200.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["suggest"],
                "summary": "Suggest an inline continuation",
                "parameters": [
                    {"description": "Context text and sampling options", "name": "request", "in": "body", "required": true,
                     "schema": {"$ref": "#/definitions/types.SuggestRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.SuggestResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/admin/cache/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Cache statistics",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.CacheStats"}}}
            }
        },
        "/admin/cache/clear": {
            "post": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Clear the suggestion cache",
                "parameters": [
                    {"type": "string", "description": "Admin secret", "name": "X-Admin-Secret", "in": "header", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ClearCacheResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ops"],
                "summary": "Service status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}
            }
        }
    },
    "definitions": {
        "types.SuggestRequest": {
            "type": "object",
            "required": ["text"],
            "properties": {
                "text": {"type": "string", "example": "The quick brown fox"},
                "maxTokens": {"type": "integer", "example": 20},
                "temperature": {"type": "number", "example": 0.3},
                "isMarkdown": {"type": "boolean", "example": false}
            }
        },
        "types.SuggestResponse": {
            "type": "object",
            "properties": {
                "suggestion": {"type": "string", "example": " jumps over the lazy dog"},
                "fallback": {"type": "boolean"},
                "error": {"type": "string", "enum": ["timeout", "auth", "upstream_error", "not_configured", "busy"]},
                "timing": {"type": "integer", "example": 42},
                "source": {"type": "string", "enum": ["cache", "provider", "fallback"]}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "invalid JSON body"},
                "code": {"type": "integer", "example": 400}
            }
        },
        "types.CacheStats": {
            "type": "object",
            "properties": {
                "hits": {"type": "integer"},
                "misses": {"type": "integer"},
                "size": {"type": "integer"},
                "maxSize": {"type": "integer", "example": 500},
                "ttl": {"type": "integer", "example": 600},
                "lastCleared": {"type": "integer"},
                "evictions": {"type": "integer"},
                "hitRate": {"type": "number"}
            }
        },
        "types.ClearCacheResponse": {
            "type": "object",
            "properties": {
                "cleared": {"type": "boolean"},
                "lastCleared": {"type": "integer"}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "provider": {"type": "object"},
                "cache": {"$ref": "#/definitions/types.CacheStats"},
                "audit": {"type": "object"},
                "inflight": {"type": "integer"},
                "max_inflight": {"type": "integer"},
                "uptime_seconds": {"type": "integer"},
                "server_time_unix": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "suggestd API",
	Description:      "Inline writing suggestions with cache, provider and heuristic fallback.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
