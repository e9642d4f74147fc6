package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Conference Schedule API",
        "description": "Draft editing, immutable releases and speaker notifications for conference schedules.",
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
        {"name": "Schedules", "description": "Draft, releases and changelogs"},
        {"name": "Slots", "description": "Draft placements"},
        {"name": "Availability", "description": "Room and speaker availability"},
        {"name": "Notifications", "description": "Speaker notification previews"}
    ],
    "paths": {
        "/events/{eventId}/schedules": {
            "get": {
                "tags": ["Schedules"],
                "summary": "List schedule releases",
                "parameters": [{"$ref": "#/parameters/eventId"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Schedules"],
                "summary": "Release the current draft",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/eventId"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/FreezeScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Released", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid version name", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Version already used", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{eventId}/schedules/{version}": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Get a schedule snapshot with its placements",
                "description": "latest resolves to the current release, wip to the draft (authentication required).",
                "parameters": [{"$ref": "#/parameters/eventId"}, {"$ref": "#/parameters/version"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown version", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{eventId}/schedules/{version}/changes": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Changelog of a snapshot against the previous release",
                "parameters": [{"$ref": "#/parameters/eventId"}, {"$ref": "#/parameters/version"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/events/{eventId}/schedules/{version}/warnings": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Advisory warnings of the draft",
                "security": [{"BearerAuth": []}],
                "parameters": [{"$ref": "#/parameters/eventId"}, {"$ref": "#/parameters/version"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/events/{eventId}/schedules/{version}/unfreeze": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Reset the draft to an earlier release",
                "security": [{"BearerAuth": []}],
                "parameters": [{"$ref": "#/parameters/eventId"}, {"$ref": "#/parameters/version"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown version", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{eventId}/unreleased-changes": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Whether the draft differs from the current release",
                "security": [{"BearerAuth": []}],
                "parameters": [{"$ref": "#/parameters/eventId"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/events/{eventId}/slots": {
            "get": {
                "tags": ["Slots"],
                "summary": "List draft placements",
                "security": [{"BearerAuth": []}],
                "parameters": [{"$ref": "#/parameters/eventId"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Slots"],
                "summary": "Place a submission into the draft",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/eventId"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SlotRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Submission already placed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{eventId}/slots/{slotId}": {
            "patch": {
                "tags": ["Slots"],
                "summary": "Move, retime or hide a draft placement",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/eventId"},
                    {"name": "slotId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SlotRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Placement belongs to a release", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Slots"],
                "summary": "Remove a draft placement",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/eventId"},
                    {"name": "slotId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/events/{eventId}/rooms/{roomId}/availabilities": {
            "get": {
                "tags": ["Availability"],
                "summary": "Merged availability of a room",
                "parameters": [{"$ref": "#/parameters/eventId"}, {"name": "roomId", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Availability"],
                "summary": "Replace the availability of a room",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/eventId"},
                    {"name": "roomId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReplaceAvailabilityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Malformed window", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{eventId}/speakers/{userId}/availabilities": {
            "get": {
                "tags": ["Availability"],
                "summary": "Merged availability of a speaker",
                "parameters": [{"$ref": "#/parameters/eventId"}, {"$ref": "#/parameters/userId"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Availability"],
                "summary": "Replace the availability of a speaker",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/eventId"},
                    {"$ref": "#/parameters/userId"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReplaceAvailabilityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Malformed window", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{eventId}/speakers/{userId}/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "Preview a speaker's schedule notification",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/eventId"},
                    {"$ref": "#/parameters/userId"},
                    {"name": "mode", "in": "query", "type": "string", "enum": ["current", "full"], "default": "current"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "parameters": {
        "eventId": {"name": "eventId", "in": "path", "required": true, "type": "string"},
        "version": {"name": "version", "in": "path", "required": true, "type": "string", "description": "Version name, latest or wip"},
        "userId": {"name": "userId", "in": "path", "required": true, "type": "string"}
    },
    "definitions": {
        "FreezeScheduleRequest": {
            "type": "object",
            "required": ["version"],
            "properties": {
                "version": {"type": "string"},
                "comment": {"type": "string"},
                "notify_speakers": {"type": "boolean", "default": true}
            }
        },
        "SlotRequest": {
            "type": "object",
            "properties": {
                "submission_id": {"type": "string"},
                "room_id": {"type": "string"},
                "start": {"type": "string", "format": "date-time"},
                "end": {"type": "string", "format": "date-time"},
                "is_visible": {"type": "boolean"},
                "clear_room": {"type": "boolean"},
                "clear_time": {"type": "boolean"}
            }
        },
        "AvailabilityWindow": {
            "type": "object",
            "required": ["start", "end"],
            "properties": {
                "start": {"type": "string", "format": "date-time"},
                "end": {"type": "string", "format": "date-time"},
                "all_day": {"type": "boolean"}
            }
        },
        "ReplaceAvailabilityRequest": {
            "type": "object",
            "properties": {
                "availabilities": {"type": "array", "items": {"$ref": "#/definitions/AvailabilityWindow"}}
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
