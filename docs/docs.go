// Package docs registers the OpenAPI description served at /swagger. It is
// maintained by hand next to the handler annotations in internal/controller/restapi.
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
        "/api/admin/contact-submissions": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["contact"],
                "summary": "List contact submissions",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/entity.ContactSubmission"}}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/response.Error"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Error"}}
                }
            }
        },
        "/api/auth/login": {
            "post": {
                "description": "Exchanges admin credentials for a bearer token",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Log in",
                "parameters": [
                    {"description": "Credentials", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/v1.loginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.Token"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Error"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Error"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/response.Error"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Error"}}
                }
            }
        },
        "/api/auth/user": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/entity.User"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Error"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Error"}}
                }
            }
        },
        "/api/contact": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["contact"],
                "summary": "Send contact form",
                "parameters": [
                    {"description": "Inquiry", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.ContactInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/entity.ContactSubmission"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Error"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/response.Error"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Error"}}
                }
            }
        },
        "/api/photos": {
            "get": {
                "description": "Returns every gallery photo, newest first",
                "produces": ["application/json"],
                "tags": ["photos"],
                "summary": "List photos",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/entity.Photo"}}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Error"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Derives a display image and a thumbnail from the upload and adds them to the gallery",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["photos"],
                "summary": "Upload photo",
                "parameters": [
                    {"type": "file", "description": "Image file (jpeg, png, webp)", "name": "photo", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/entity.Photo"}},
                    "400": {"description": "No file", "schema": {"$ref": "#/definitions/response.Error"}},
                    "403": {"description": "Not an admin", "schema": {"$ref": "#/definitions/response.Error"}},
                    "413": {"description": "File too large", "schema": {"$ref": "#/definitions/response.Error"}},
                    "415": {"description": "Unsupported media type", "schema": {"$ref": "#/definitions/response.Error"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Error"}}
                }
            }
        },
        "/api/photos/{id}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "description": "Removes the photo from the gallery. Deleting an unknown id succeeds",
                "produces": ["application/json"],
                "tags": ["photos"],
                "summary": "Delete photo",
                "parameters": [
                    {"type": "integer", "description": "Photo ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Success"}},
                    "400": {"description": "Invalid ID", "schema": {"$ref": "#/definitions/response.Error"}},
                    "403": {"description": "Not an admin", "schema": {"$ref": "#/definitions/response.Error"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Error"}}
                }
            }
        },
        "/uploads/{filename}": {
            "get": {
                "produces": ["image/jpeg"],
                "tags": ["uploads"],
                "summary": "Get stored image",
                "parameters": [
                    {"type": "string", "description": "Display or thumbnail file name", "name": "filename", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Error"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Error"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Error"}}
                }
            }
        }
    },
    "definitions": {
        "dto.ContactInput": {
            "type": "object",
            "required": ["email", "firstName", "lastName", "message"],
            "properties": {
                "email": {"type": "string", "maxLength": 255},
                "firstName": {"type": "string", "maxLength": 255},
                "language": {"type": "string", "enum": ["nl", "en", "ar"]},
                "lastName": {"type": "string", "maxLength": 255},
                "message": {"type": "string", "maxLength": 5000},
                "phone": {"type": "string", "maxLength": 64},
                "service": {"type": "string", "enum": ["single", "package", "trial"]}
            }
        },
        "dto.Token": {
            "type": "object",
            "properties": {
                "expiresAt": {"type": "string"},
                "token": {"type": "string"}
            }
        },
        "entity.ContactSubmission": {
            "type": "object",
            "properties": {
                "createdAt": {"type": "string"},
                "email": {"type": "string"},
                "firstName": {"type": "string"},
                "id": {"type": "integer"},
                "language": {"type": "string"},
                "lastName": {"type": "string"},
                "message": {"type": "string"},
                "phone": {"type": "string"},
                "service": {"type": "string"}
            }
        },
        "entity.Photo": {
            "type": "object",
            "properties": {
                "createdAt": {"type": "string"},
                "filename": {"type": "string"},
                "id": {"type": "integer"},
                "mimetype": {"type": "string"},
                "originalName": {"type": "string"},
                "size": {"type": "integer"},
                "thumbnailUrl": {"type": "string"},
                "uploadedBy": {"type": "string"},
                "url": {"type": "string"}
            }
        },
        "entity.User": {
            "type": "object",
            "properties": {
                "createdAt": {"type": "string"},
                "email": {"type": "string"},
                "firstName": {"type": "string"},
                "id": {"type": "string"},
                "isAdmin": {"type": "boolean"},
                "lastName": {"type": "string"},
                "profileImageUrl": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "response.Error": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "admin access required"}
            }
        },
        "response.Success": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": true}
            }
        },
        "v1.loginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string", "example": "admin@example.nl"},
                "password": {"type": "string", "example": "secret"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Driving school gallery",
	Description:      "",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
