package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Enrollment Portal API",
        "description": "School enrollment portal: student application flow and admin review",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Login, registration and session"},
        {"name": "Enrollment", "description": "Student enrollment flow"},
        {"name": "Admin", "description": "Application review console"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register a student account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "End the current session",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/auth/session": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Describe the current session",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollment": {
            "get": {
                "tags": ["Enrollment"],
                "summary": "Current enrollment flow state",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollment/documents/{id}": {
            "post": {
                "tags": ["Enrollment"],
                "summary": "Mark a checklist document attached or detached",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"attached": {"type": "boolean"}}}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Documents locked after submission"}
                }
            }
        },
        "/enrollment/continue": {
            "post": {
                "tags": ["Enrollment"],
                "summary": "Advance from the checklist to the form",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK"},
                    "412": {"description": "Required documents missing"}
                }
            }
        },
        "/enrollment/draft": {
            "put": {
                "tags": ["Enrollment"],
                "summary": "Save the enrollment form as a draft",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EnrollmentForm"}}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/enrollment/form": {
            "delete": {
                "tags": ["Enrollment"],
                "summary": "Reset the form and checklist and delete the saved draft",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/enrollment/submit": {
            "post": {
                "tags": ["Enrollment"],
                "summary": "Submit the enrollment form for payment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EnrollmentForm"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Validation failed; meta.fields lists offenders"},
                    "412": {"description": "Required documents missing"}
                }
            }
        },
        "/enrollment/payment": {
            "post": {
                "tags": ["Enrollment"],
                "summary": "Settle the enrollment fee and file the application",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PaymentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Application created"},
                    "409": {"description": "Payment cancelled or no payment in progress"}
                }
            }
        },
        "/enrollment/payment/cancel": {
            "post": {
                "tags": ["Enrollment"],
                "summary": "Step back from payment to form editing",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/enrollment/application": {
            "get": {
                "tags": ["Enrollment"],
                "summary": "The student's submitted application",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "No submitted application"}
                }
            }
        },
        "/admin/applications": {
            "get": {
                "tags": ["Admin"],
                "summary": "List applications",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/applications/{id}": {
            "get": {
                "tags": ["Admin"],
                "summary": "One application by id",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["Admin"],
                "summary": "Remove an application",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/admin/applications/{id}/status": {
            "patch": {
                "tags": ["Admin"],
                "summary": "Move an application to a new review state",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"status": {"type": "string"}}}}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/admin/applications/{id}/notes": {
            "post": {
                "tags": ["Admin"],
                "summary": "Attach a review note",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"body": {"type": "string"}}}}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/admin/applications/{id}/documents": {
            "patch": {
                "tags": ["Admin"],
                "summary": "Verify or reject a submitted document",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"name": {"type": "string"}, "status": {"type": "string"}}}}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/admin/summary": {
            "get": {
                "tags": ["Admin"],
                "summary": "Dashboard counts",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/admin/exports": {
            "post": {
                "tags": ["Admin"],
                "summary": "Queue a CSV or PDF export of the applications table",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"format": {"type": "string", "enum": ["csv", "pdf"]}}}}
                ],
                "responses": {
                    "202": {"description": "Accepted"}
                }
            }
        },
        "/admin/exports/{id}": {
            "get": {
                "tags": ["Admin"],
                "summary": "Export job status",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/admin/exports/{id}/download": {
            "get": {
                "tags": ["Admin"],
                "summary": "Download a completed export",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "produces": ["application/octet-stream"],
                "responses": {
                    "200": {"description": "File"},
                    "409": {"description": "Job not completed yet"}
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
        "RegisterRequest": {
            "type": "object",
            "required": ["first_name", "last_name", "email", "password"],
            "properties": {
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "EnrollmentForm": {
            "type": "object",
            "properties": {
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "date_of_birth": {"type": "string"},
                "gender": {"type": "string"},
                "street": {"type": "string"},
                "city": {"type": "string"},
                "state": {"type": "string"},
                "zip_code": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"},
                "grade_level": {"type": "integer"},
                "strand": {"type": "string"},
                "emergency_contact_name": {"type": "string"},
                "emergency_contact_phone": {"type": "string"},
                "emergency_contact_relationship": {"type": "string"}
            }
        },
        "PaymentRequest": {
            "type": "object",
            "required": ["method"],
            "properties": {
                "method": {"type": "string", "enum": ["credit_card", "bank_transfer"]},
                "details": {"type": "object"}
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
