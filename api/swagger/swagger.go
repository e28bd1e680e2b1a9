package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Tests API",
        "description": "Test authoring, result grading and progress analytics for school groups",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "Bearer": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"Bearer": []}],
    "tags": [
        {"name": "Tests", "description": "Tests and their publication state"},
        {"name": "Tasks", "description": "Ordered basic and reflexive tasks of a test"},
        {"name": "Assignments", "description": "Groups a test is administered to"},
        {"name": "Results", "description": "Grading sheet and result submission"},
        {"name": "Analytics", "description": "Per-level totals, task counts, group averages and monthly series"},
        {"name": "Roster", "description": "Groups, students and subjects"},
        {"name": "PersonalCards", "description": "Teacher notes and soft skill marks shown on report cards"},
        {"name": "Reports", "description": "Asynchronous CSV and PDF exports"}
    ],
    "paths": {
        "/tests": {
            "get": {
                "tags": ["Tests"],
                "summary": "List tests",
                "parameters": [
                    {"name": "subject_id", "in": "query", "type": "string"},
                    {"name": "studying_year", "in": "query", "type": "integer"},
                    {"name": "published", "in": "query", "type": "boolean"},
                    {"name": "group_id", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Tests"],
                "summary": "Create test",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateTestRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tests/{id}/tasks": {
            "post": {
                "tags": ["Tasks"],
                "summary": "Add task",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateTaskRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate task number and level", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tests/{id}/groups": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Assign groups and create their blank result rows",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignGroupsRequest"}}
                ],
                "responses": {"200": {"description": "Rows created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Assignments"],
                "summary": "Unassign groups that have not written the test",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignGroupsRequest"}}
                ],
                "responses": {
                    "200": {"description": "Rows deleted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Group already wrote the test", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tests/{id}/groups/{groupId}/results": {
            "get": {
                "tags": ["Results"],
                "summary": "Grading sheet of a group",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "groupId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Results"],
                "summary": "Submit every student's results of a group",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "groupId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GroupResultsRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated sheet", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Rejected batch", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tests/{id}/students/{studentId}/results": {
            "put": {
                "tags": ["Results"],
                "summary": "Submit one student's results",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StudentResultsRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated row", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Rejected batch", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/analytics/tests/{id}/summary": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Results matrix of graded students",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "group_id", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/analytics/groups/{groupId}/series": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Monthly subject series of a group",
                "parameters": [
                    {"name": "groupId", "in": "path", "required": true, "type": "string"},
                    {"name": "subject_id", "in": "query", "required": true, "type": "string"},
                    {"name": "academic_year", "in": "query", "type": "integer"},
                    {"name": "from_month", "in": "query", "type": "integer"},
                    {"name": "to_month", "in": "query", "type": "integer"},
                    {"name": "level", "in": "query", "type": "string", "enum": ["basic", "reflexive"]}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/analytics/students/{studentId}/report-card": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Personal report card",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "academic_year", "in": "query", "type": "integer"},
                    {"name": "from_month", "in": "query", "type": "integer"},
                    {"name": "to_month", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/groups": {
            "get": {
                "tags": ["Roster"],
                "summary": "List groups",
                "parameters": [
                    {"name": "campus", "in": "query", "type": "string"},
                    {"name": "studying_year", "in": "query", "type": "integer"},
                    {"name": "active", "in": "query", "type": "boolean"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/students/{studentId}/cards": {
            "get": {
                "tags": ["PersonalCards"],
                "summary": "List a student's personal cards",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "archived", "in": "query", "type": "boolean"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["PersonalCards"],
                "summary": "Open a personal card for a reporting period",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreatePersonalCardRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/cards/{cardId}": {
            "get": {
                "tags": ["PersonalCards"],
                "summary": "Get a personal card with notes and soft skill marks",
                "parameters": [
                    {"name": "cardId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "patch": {
                "tags": ["PersonalCards"],
                "summary": "Write notes and soft skill marks, or archive the card",
                "parameters": [
                    {"name": "cardId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdatePersonalCardRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Card is archived", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["PersonalCards"],
                "summary": "Delete a personal card",
                "parameters": [
                    {"name": "cardId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/soft-skills": {
            "get": {
                "tags": ["PersonalCards"],
                "summary": "List soft skills",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["PersonalCards"],
                "summary": "Create a soft skill",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSoftSkillRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/reports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Queue a report export",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReportRequest"}}
                ],
                "responses": {"202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/reports/download/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a finished export",
                "security": [],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateTestRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "subject_id": {"type": "string"},
                "studying_year": {"type": "integer"},
                "month": {"type": "integer"}
            },
            "required": ["name", "subject_id", "studying_year", "month"]
        },
        "CreateTaskRequest": {
            "type": "object",
            "properties": {
                "num": {"type": "integer"},
                "level": {"type": "string", "enum": ["basic", "reflexive"]},
                "checked_skill": {"type": "string"},
                "max_points": {"type": "integer"}
            },
            "required": ["num", "level", "max_points"]
        },
        "AssignGroupsRequest": {
            "type": "object",
            "properties": {
                "group_ids": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["group_ids"]
        },
        "StudentResultsRequest": {
            "type": "object",
            "properties": {
                "results": {"type": "object", "additionalProperties": {"type": "integer", "x-nullable": true}}
            },
            "required": ["results"]
        },
        "GroupResultsRequest": {
            "type": "object",
            "properties": {
                "students": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "student_id": {"type": "string"},
                            "results": {"type": "object", "additionalProperties": {"type": "integer", "x-nullable": true}}
                        }
                    }
                }
            },
            "required": ["students"]
        },
        "CreatePersonalCardRequest": {
            "type": "object",
            "properties": {
                "start_date": {"type": "string", "format": "date-time"},
                "end_date": {"type": "string", "format": "date-time"}
            },
            "required": ["start_date", "end_date"]
        },
        "UpdatePersonalCardRequest": {
            "type": "object",
            "properties": {
                "is_archived": {"type": "boolean"},
                "notes": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "subject_id": {"type": "string"},
                            "kind": {"type": "string", "enum": ["recommendation", "strength"]},
                            "text": {"type": "string"}
                        }
                    }
                },
                "skill_marks": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "skill_id": {"type": "string"},
                            "mark": {"type": "string", "enum": ["no", "rather_no", "rather_yes", "yes"], "x-nullable": true}
                        }
                    }
                }
            }
        },
        "CreateSoftSkillRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"}
            },
            "required": ["name"]
        },
        "ReportRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["report_card", "test_results", "group_progress"]},
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "studentId": {"type": "string"},
                "groupId": {"type": "string"},
                "testId": {"type": "string"},
                "subjectId": {"type": "string"},
                "academicYear": {"type": "integer"},
                "fromMonth": {"type": "integer"},
                "toMonth": {"type": "integer"}
            },
            "required": ["type", "format"]
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
                "status": {"type": "integer"},
                "details": {"type": "object"}
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
