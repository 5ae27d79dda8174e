// Package docs registers the OpenAPI description served at /swagger.
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
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Health check",
                "responses": {
                    "200": {
                        "description": "status, monitor",
                        "schema": {"type": "object", "additionalProperties": {"type": "string"}}
                    }
                }
            }
        },
        "/api/v1/snapshot": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Latest reading, findings, recommendation, error lines and counters.",
                "produces": ["application/json"],
                "tags": ["monitor"],
                "summary": "Current snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Snapshot"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/v1/ranges": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["monitor"],
                "summary": "Optimal ranges",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/handlers.rangeResponse"}}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/v1/events": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Filter by date (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). A date-only 'to' covers the whole day.",
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "List journal events",
                "parameters": [
                    {"type": "string", "example": "2026-01-14", "description": "Start of range", "name": "from", "in": "query"},
                    {"type": "string", "example": "2026-01-14", "description": "End of range. Date-only treated as end of day.", "name": "to", "in": "query"},
                    {"type": "string", "example": "ALERT,SENSOR_ERROR", "description": "Comma-separated event types (START,STOP,STATUS_CHANGE,SENSOR_ERROR,ADVISORY,ALERT)", "name": "type", "in": "query"},
                    {"type": "integer", "description": "Newest N matching events, returned oldest first (default 200, max 1000)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "count, events", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        }
    },
    "definitions": {
        "handlers.rangeResponse": {
            "type": "object",
            "properties": {
                "metric": {"type": "string"},
                "min": {"type": "number"},
                "max": {"type": "number"},
                "unit": {"type": "string"}
            }
        },
        "models.Reading": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "timestamp": {"type": "string"},
                "temperature_c": {"type": "number", "x-nullable": true},
                "humidity_percent": {"type": "number", "x-nullable": true},
                "co2_ppm": {"type": "integer", "x-nullable": true},
                "light_lux": {"type": "number", "x-nullable": true}
            }
        },
        "models.Finding": {
            "type": "object",
            "properties": {
                "metric": {"type": "string"},
                "value": {"type": "number"},
                "bound": {"type": "string", "enum": ["low", "high"]},
                "min": {"type": "number"},
                "max": {"type": "number"},
                "severity": {"type": "string", "enum": ["mild", "moderate", "critical"]}
            }
        },
        "models.Recommendation": {
            "type": "object",
            "properties": {
                "text": {"type": "string"},
                "source": {"type": "string", "enum": ["ai", "fallback"]},
                "generated_at": {"type": "string"},
                "fallback_reason": {"type": "string"}
            }
        },
        "models.Snapshot": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["RUNNING", "DEGRADED", "STOPPED"]},
                "reading": {"$ref": "#/definitions/models.Reading"},
                "findings": {"type": "array", "items": {"$ref": "#/definitions/models.Finding"}},
                "recommendation": {"$ref": "#/definitions/models.Recommendation"},
                "errors": {"type": "array", "items": {"type": "string"}},
                "readings": {"type": "integer"},
                "sensor_errors": {"type": "integer"},
                "advisor_failures": {"type": "integer"},
                "reporter_failures": {"type": "integer"},
                "started_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Plant Monitor Status API",
	Description:      "Read-only view of the plant monitor loop: latest snapshot, optimal ranges and the event journal.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
