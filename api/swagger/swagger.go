package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "LMS Admin Console Gateway",
        "description": "Collection management gateway for the LMS admin consoles",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Consoles", "description": "Console sessions, views, and selections"},
        {"name": "Records", "description": "Per-record status transitions and undo"},
        {"name": "Bulk", "description": "Batched actions over the selection"},
        {"name": "Imports", "description": "CSV import pipeline"},
        {"name": "Exports", "description": "Selection export rendering and download"}
    ],
    "paths": {
        "/consoles/{kind}/mount": {
            "post": {
                "tags": ["Consoles"],
                "summary": "Mount a console and load the first snapshot",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string", "enum": ["students", "instructors", "courses"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Platform unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/consoles/{kind}": {
            "delete": {
                "tags": ["Consoles"],
                "summary": "Unmount a console",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/consoles/{kind}/view": {
            "get": {
                "tags": ["Consoles"],
                "summary": "Current derived view",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Console not mounted"}
                }
            },
            "put": {
                "tags": ["Consoles"],
                "summary": "Edit view parameters (search, filters, sort, page)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ViewParameters"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unknown sort key or status filter"}
                }
            }
        },
        "/consoles/{kind}/selection": {
            "patch": {
                "tags": ["Consoles"],
                "summary": "Add or remove selected record ids",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SelectionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/consoles/{kind}/refresh": {
            "post": {
                "tags": ["Consoles"],
                "summary": "Refetch the console snapshot",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/consoles/{kind}/stats": {
            "get": {
                "tags": ["Consoles"],
                "summary": "Platform aggregates plus local per-status counts",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/consoles/{kind}/records/{id}/transition": {
            "post": {
                "tags": ["Records"],
                "summary": "Apply one status transition to a record",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TransitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Confirmation denied or transition not allowed"},
                    "409": {"description": "Transition or bulk action already in flight"},
                    "502": {"description": "Remote call failed, optimistic change rolled back"}
                }
            }
        },
        "/consoles/{kind}/records/{id}/undo": {
            "post": {
                "tags": ["Records"],
                "summary": "Invoke the undo affordance of a prior transition",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UndoRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK, or an inert no-op when the window expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/consoles/{kind}/records/{id}/audit": {
            "get": {
                "tags": ["Records"],
                "summary": "Audit trail for one record",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/consoles/{kind}/bulk": {
            "post": {
                "tags": ["Bulk"],
                "summary": "Apply one action to the current selection",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Another bulk action is in flight"}
                }
            }
        },
        "/consoles/{kind}/import": {
            "post": {
                "tags": ["Imports"],
                "summary": "Parse and submit a CSV import payload",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ImportRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "No valid rows in payload"}
                }
            }
        },
        "/consoles/{kind}/imports": {
            "get": {
                "tags": ["Imports"],
                "summary": "Past import submissions",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/jobs/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Status of a queued selection export",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a rendered export via signed token",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
        "ViewParameters": {
            "type": "object",
            "properties": {
                "search": {"type": "string"},
                "status_filter": {"type": "string"},
                "sort_key": {"type": "string"},
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "created_from": {"type": "string", "format": "date-time"},
                "created_to": {"type": "string", "format": "date-time"}
            }
        },
        "SelectionRequest": {
            "type": "object",
            "properties": {
                "add": {"type": "array", "items": {"type": "string"}},
                "remove": {"type": "array", "items": {"type": "string"}}
            }
        },
        "TransitionRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string"},
                "label": {"type": "string"},
                "confirmed": {"type": "boolean"}
            }
        },
        "UndoRequest": {
            "type": "object",
            "required": ["token"],
            "properties": {
                "token": {"type": "string"}
            }
        },
        "BulkRequest": {
            "type": "object",
            "required": ["action"],
            "properties": {
                "action": {"type": "string"},
                "confirmed": {"type": "boolean"},
                "format": {"type": "string", "enum": ["csv", "pdf"]}
            }
        },
        "ImportRequest": {
            "type": "object",
            "required": ["text"],
            "properties": {
                "text": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
