package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Counseling API",
        "description": "Session entitlement, booking, and refund management for counseling centers",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication and password reset"},
        {"name": "Mappings", "description": "Consultant-client mapping ledger and payment workflow"},
        {"name": "Schedules", "description": "Session booking and lifecycle"},
        {"name": "Availability", "description": "Consultant weekly slots and vacations"},
        {"name": "Extensions", "description": "Session extension requests"},
        {"name": "Refunds", "description": "Partial refunds and terminations"},
        {"name": "Catalog", "description": "Branches and display codes"},
        {"name": "System", "description": "Metrics and sweeper operations"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and receive an access token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/password-reset/request": {
            "post": {
                "tags": ["Auth"],
                "summary": "Request a password reset code",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/auth/password-reset": {
            "post": {
                "tags": ["Auth"],
                "summary": "Redeem a reset code for a new password",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Return the authenticated user's claims",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/mappings": {
            "get": {
                "tags": ["Mappings"],
                "summary": "List mappings",
                "parameters": [
                    {"name": "consultant_id", "in": "query", "type": "string"},
                    {"name": "client_id", "in": "query", "type": "string"},
                    {"name": "branch_code", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Mappings"],
                "summary": "Create a mapping awaiting payment",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateMappingRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Active mapping already exists for the pair"}
                }
            }
        },
        "/mappings/{id}": {
            "get": {
                "tags": ["Mappings"],
                "summary": "Fetch a mapping",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/mappings/{id}/deposit": {
            "post": {
                "tags": ["Mappings"],
                "summary": "Record a confirmed deposit",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Mapping not awaiting payment"}
                }
            }
        },
        "/mappings/{id}/approve": {
            "post": {
                "tags": ["Mappings"],
                "summary": "Approve a confirmed deposit and activate the mapping",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Deposit not confirmed or pair already active"}
                }
            }
        },
        "/mappings/{id}/reject": {
            "post": {
                "tags": ["Mappings"],
                "summary": "Reject a payment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/mappings/{id}/transfer": {
            "post": {
                "tags": ["Mappings"],
                "summary": "Transfer remaining sessions to a new consultant",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Mapping not active or target pair already active"}
                }
            }
        },
        "/mappings/{id}/refunds/quote": {
            "get": {
                "tags": ["Refunds"],
                "summary": "Quote a partial refund",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "sessions", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/mappings/{id}/refunds": {
            "post": {
                "tags": ["Refunds"],
                "summary": "Issue a partial refund",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Cooling-off window elapsed"}
                }
            }
        },
        "/mappings/{id}/terminate": {
            "post": {
                "tags": ["Refunds"],
                "summary": "Terminate a mapping and refund remaining sessions",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules": {
            "get": {
                "tags": ["Schedules"],
                "summary": "List schedules",
                "parameters": [
                    {"name": "consultant_id", "in": "query", "type": "string"},
                    {"name": "client_id", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Schedules"],
                "summary": "Book a session",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Overlap, vacation, or exhausted entitlement"}
                }
            }
        },
        "/schedules/{id}": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Fetch a schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Schedules"],
                "summary": "Reschedule or annotate a booking",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "New window conflicts"}
                }
            },
            "delete": {
                "tags": ["Schedules"],
                "summary": "Delete a booking (cancels it, keeping the row for history)",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Schedule already terminal"}
                }
            }
        },
        "/schedules/{id}/confirm": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Confirm a booked session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/{id}/cancel": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Cancel a booked or confirmed session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Session already processed"}
                }
            }
        },
        "/availability/slots": {
            "post": {
                "tags": ["Availability"],
                "summary": "Create a weekly availability slot",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/availability/slots/{id}": {
            "put": {
                "tags": ["Availability"],
                "summary": "Update a slot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Availability"],
                "summary": "Delete a slot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/availability/vacations": {
            "post": {
                "tags": ["Availability"],
                "summary": "Register a vacation window",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Vacation overlaps an existing booking"}
                }
            }
        },
        "/availability/consultants/{consultant_id}/day": {
            "get": {
                "tags": ["Availability"],
                "summary": "Resolve effective availability for one day",
                "parameters": [
                    {"name": "consultant_id", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/extensions": {
            "get": {
                "tags": ["Extensions"],
                "summary": "List extension requests",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Extensions"],
                "summary": "Request additional sessions for a mapping",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "An open request already exists"}
                }
            }
        },
        "/extensions/{id}/approve": {
            "post": {
                "tags": ["Extensions"],
                "summary": "Approve a request and credit the mapping",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/refunds": {
            "get": {
                "tags": ["Refunds"],
                "summary": "List refund audit records",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/refunds/{id}/statement": {
            "get": {
                "tags": ["Refunds"],
                "summary": "Download a refund statement PDF",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "produces": ["application/pdf"],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/catalog/branches": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List active branches",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/system/sweep": {
            "post": {
                "tags": ["System"],
                "summary": "Run the completion sweeper immediately",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "CreateMappingRequest": {
            "type": "object",
            "required": ["consultant_id", "client_id", "branch_code", "total_sessions", "package_price"],
            "properties": {
                "consultant_id": {"type": "string"},
                "client_id": {"type": "string"},
                "branch_code": {"type": "string"},
                "total_sessions": {"type": "integer"},
                "package_price": {"type": "integer"}
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
