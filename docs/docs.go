// Package docs registers the OpenAPI document served at /swagger/doc.json.
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
        "/factcheck": {
            "post": {
                "description": "Splits the message into claims and scores each against the indexed corpus",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["FactCheck"],
                "summary": "Fact-check a message",
                "parameters": [
                    {
                        "description": "Message to check",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/http.FactCheckRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.FactCheckResponse"}},
                    "400": {"description": "Missing or empty message", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "429": {"description": "Rate limit exceeded", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "500": {"description": "Fact check failed", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "503": {"description": "Fact checker not available", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/stats": {
            "get": {
                "description": "Returns chunk and source counts of the indexed corpus",
                "produces": ["application/json"],
                "tags": ["Corpus"],
                "summary": "Corpus statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.StatsResponse"}},
                    "500": {"description": "Failed to read statistics", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/stats/overview": {
            "get": {
                "description": "Returns per-source title, author, chunk count and processing date",
                "produces": ["application/json"],
                "tags": ["Corpus"],
                "summary": "Corpus overview",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.OverviewResponse"}},
                    "500": {"description": "Failed to read statistics", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/sources/{name}": {
            "get": {
                "description": "Returns details of one indexed document by file name",
                "produces": ["application/json"],
                "tags": ["Corpus"],
                "summary": "Get source",
                "parameters": [
                    {"type": "string", "description": "Document file name", "name": "name", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.SourceResponse"}},
                    "404": {"description": "Source not found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/admin/sweep": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns the outcome of the most recent sweep run by this process",
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Last sweep result",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.SweepResult"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "403": {"description": "Admin access required", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "No sweep recorded", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Enqueue an incremental sweep of the document directory",
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Trigger sweep",
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/http.TaskResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "403": {"description": "Admin access required", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/admin/rebuild": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Enqueue a full rebuild: clear the corpus and fingerprints, then sweep",
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Trigger rebuild",
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/http.TaskResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "403": {"description": "Admin access required", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.ChunkMetadata": {
            "type": "object",
            "properties": {
                "source": {"type": "string"},
                "chunk_index": {"type": "integer"},
                "title": {"type": "string"},
                "author": {"type": "string"},
                "processed_date": {"type": "string"},
                "chunk_length": {"type": "integer"}
            }
        },
        "domain.ClaimResult": {
            "type": "object",
            "properties": {
                "claim": {"type": "string"},
                "confidence": {"type": "number"},
                "supporting_text": {"type": "string"},
                "source": {"$ref": "#/definitions/domain.ChunkMetadata"}
            }
        },
        "domain.SourceRef": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "source": {"type": "string"}
            }
        },
        "domain.SourceDetail": {
            "type": "object",
            "properties": {
                "source": {"type": "string"},
                "title": {"type": "string"},
                "author": {"type": "string"},
                "processed_date": {"type": "string"},
                "chunk_count": {"type": "integer"}
            }
        },
        "domain.SweepResult": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "error": {"type": "string"},
                "started_at": {"type": "string"},
                "completed_at": {"type": "string"}
            }
        },
        "http.ErrorResponse": {
            "description": "API error response",
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": false},
                "error": {"type": "string", "example": "invalid request body"}
            }
        },
        "http.FactCheckRequest": {
            "description": "Message to check against the corpus",
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "The Eiffel Tower is 330 metres tall."}
            }
        },
        "http.FactCheckResponse": {
            "description": "Verdict with per-claim evidence",
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": true},
                "status": {"type": "string", "example": "verified"},
                "confidence": {"type": "number", "example": 0.82},
                "is_supported": {"type": "boolean", "example": true},
                "formatted_response": {"type": "string"},
                "claim_results": {"type": "array", "items": {"$ref": "#/definitions/domain.ClaimResult"}},
                "sources": {"type": "array", "items": {"$ref": "#/definitions/domain.SourceRef"}}
            }
        },
        "http.StatsResponse": {
            "description": "Corpus statistics",
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "stats": {
                    "type": "object",
                    "properties": {
                        "total_chunks": {"type": "integer"},
                        "unique_sources": {"type": "integer"},
                        "sources": {"type": "array", "items": {"type": "string"}}
                    }
                }
            }
        },
        "http.OverviewResponse": {
            "description": "Per-source corpus breakdown",
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "stats": {
                    "type": "object",
                    "properties": {
                        "total_chunks": {"type": "integer"},
                        "unique_sources": {"type": "integer"},
                        "unique_authors": {"type": "integer"},
                        "sources_detail": {"type": "array", "items": {"$ref": "#/definitions/domain.SourceDetail"}},
                        "authors": {"type": "array", "items": {"type": "string"}}
                    }
                }
            }
        },
        "http.SourceResponse": {
            "description": "Indexed document detail",
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "source": {"$ref": "#/definitions/domain.SourceDetail"}
            }
        },
        "http.TaskResponse": {
            "description": "Enqueued background task",
            "type": "object",
            "properties": {
                "task_id": {"type": "string"},
                "type": {"type": "string", "example": "sweep"},
                "status": {"type": "string", "example": "pending"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Admin JWT as \"Bearer <token>\"",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Sercha Fact Check API",
	Description:      "Checks messages against a corpus of indexed PDF documents.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
