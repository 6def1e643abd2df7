package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "EduSchedule API",
        "description": "Classroom and course scheduling with recurrence-aware conflict validation",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Events", "description": "Classroom bookings, one-off and repeating"},
        {"name": "Agenda", "description": "Expanded day view"},
        {"name": "Classrooms", "description": "Room inventory"},
        {"name": "Courses", "description": "Course catalogue"},
        {"name": "Teachers", "description": "Teacher roster"},
        {"name": "Calendars", "description": "User-owned course filters"},
        {"name": "Exports", "description": "ICS, CSV and PDF exports"}
    ],
    "paths": {
        "/events": {
            "get": {
                "tags": ["Events"],
                "summary": "List events",
                "parameters": [
                    {"name": "classroomId", "in": "query", "type": "string"},
                    {"name": "courseId", "in": "query", "type": "string"},
                    {"name": "teacherId", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Events"],
                "summary": "Book an event",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EventPayload"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload or recurrence"},
                    "409": {"description": "Classroom already booked"}
                }
            }
        },
        "/events/{id}": {
            "get": {
                "tags": ["Events"],
                "summary": "Get event",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Events"],
                "summary": "Update event",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EventPayload"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Classroom already booked"}
                }
            },
            "delete": {
                "tags": ["Events"],
                "summary": "Delete event",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/events/{id}/occurrences/{date}": {
            "delete": {
                "tags": ["Events"],
                "summary": "Cancel one occurrence of a repeating event",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "path", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Event has no occurrence on that date"}
                }
            }
        },
        "/agenda": {
            "get": {
                "tags": ["Agenda"],
                "summary": "Agenda for one day",
                "parameters": [
                    {"name": "date", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "classroomId", "in": "query", "type": "string"},
                    {"name": "courseId", "in": "query", "type": "string"},
                    {"name": "calendarId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classrooms": {
            "get": {
                "tags": ["Classrooms"],
                "summary": "List classrooms",
                "parameters": [
                    {"name": "building", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Classrooms"],
                "summary": "Create classroom",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ClassroomPayload"}}
                ],
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/classrooms/{id}/events": {
            "get": {
                "tags": ["Classrooms"],
                "summary": "List a classroom's bookings",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classrooms/{id}/timetable.pdf": {
            "get": {
                "tags": ["Exports"],
                "summary": "Weekly timetable sheet",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "PDF document"}
                }
            }
        },
        "/courses": {
            "get": {
                "tags": ["Courses"],
                "summary": "List courses",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers": {
            "get": {
                "tags": ["Teachers"],
                "summary": "List teachers",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendars": {
            "get": {
                "tags": ["Calendars"],
                "summary": "List my calendars",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Calendars"],
                "summary": "Create a calendar",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CalendarPayload"}}
                ],
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/export/ics": {
            "get": {
                "tags": ["Exports"],
                "summary": "iCalendar feed of the timetable",
                "produces": ["text/calendar"],
                "parameters": [
                    {"name": "classroomId", "in": "query", "type": "string"},
                    {"name": "courseId", "in": "query", "type": "string"},
                    {"name": "calendarId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "ICS document"}
                }
            }
        },
        "/export/events.csv": {
            "get": {
                "tags": ["Exports"],
                "summary": "CSV dump of every event",
                "produces": ["text/csv"],
                "responses": {
                    "200": {"description": "CSV document"}
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "definitions": {
        "EventPayload": {
            "type": "object",
            "required": ["name", "classroom_id", "course_id", "start_time", "end_time", "start_date", "end_date", "repeat_interval"],
            "properties": {
                "name": {"type": "string"},
                "classroom_id": {"type": "string"},
                "course_id": {"type": "string"},
                "teacher_id": {"type": "string"},
                "start_time": {"type": "string", "example": "10:00:00"},
                "end_time": {"type": "string", "example": "11:00:00"},
                "start_date": {"type": "string", "format": "date"},
                "end_date": {"type": "string", "format": "date"},
                "repeat_interval": {"type": "string", "enum": ["none", "daily", "weekly", "monthly", "yearly"]},
                "excluded_dates": {"type": "array", "items": {"type": "string", "format": "date"}}
            }
        },
        "ClassroomPayload": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string"},
                "building": {"type": "string"},
                "capacity": {"type": "integer"},
                "equipment": {"type": "string"}
            }
        },
        "CalendarPayload": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string"},
                "course_ids": {"type": "array", "items": {"type": "string"}}
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
