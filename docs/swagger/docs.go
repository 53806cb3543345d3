// Package swagger registers the generated API specification with swag so
// the /swagger/* UI can serve it.
package swagger

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
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/api/auth/register": {
            "post": {"tags": ["auth"], "summary": "Register", "responses": {"201": {"description": "Created"}}}
        },
        "/api/auth/login": {
            "post": {"tags": ["auth"], "summary": "Login", "responses": {"200": {"description": "OK"}}}
        },
        "/api/auth/profile": {
            "get": {"tags": ["auth"], "summary": "Current profile", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/auth/stremio/login": {
            "post": {"tags": ["auth"], "summary": "Link remote account", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/auth/stremio/register": {
            "post": {"tags": ["auth"], "summary": "Register remote account", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/users": {
            "get": {"tags": ["users"], "summary": "List users", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["users"], "summary": "Create user", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}}}
        },
        "/api/users/assign-addon": {
            "post": {"tags": ["users"], "summary": "Assign addon", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/users/{id}": {
            "get": {"tags": ["users"], "summary": "Get user", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["users"], "summary": "Update user", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["users"], "summary": "Delete user", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/users/{userId}/addons/{addonId}": {
            "delete": {"tags": ["users"], "summary": "Remove addon", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/users/{id}/sync-addons": {
            "post": {"tags": ["users"], "summary": "Sync addons", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/users/{id}/stremio-status": {
            "get": {"tags": ["users"], "summary": "Remote link status", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/resellers": {
            "get": {"tags": ["resellers"], "summary": "List resellers", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["resellers"], "summary": "Create reseller", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}}}
        },
        "/api/resellers/{id}": {
            "get": {"tags": ["resellers"], "summary": "Get reseller", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["resellers"], "summary": "Update reseller", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["resellers"], "summary": "Delete reseller", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/resellers/{id}/credits": {
            "post": {"tags": ["resellers"], "summary": "Add credits", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/resellers/{id}/users": {
            "get": {"tags": ["resellers"], "summary": "Reseller users", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/resellers/{id}/stats": {
            "get": {"tags": ["resellers"], "summary": "Reseller stats", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/resellers/stats/me": {
            "get": {"tags": ["resellers"], "summary": "Own stats", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/addons": {
            "get": {"tags": ["addons"], "summary": "List addons", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["addons"], "summary": "Create addon", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}}}
        },
        "/api/addons/validate": {
            "post": {"tags": ["addons"], "summary": "Validate addon", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/addons/official": {
            "get": {"tags": ["addons"], "summary": "Official addons", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/addons/official/import": {
            "post": {"tags": ["addons"], "summary": "Import official addon", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}}}
        },
        "/api/addons/{id}": {
            "get": {"tags": ["addons"], "summary": "Get addon", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["addons"], "summary": "Update addon", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["addons"], "summary": "Delete addon", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/addons/{id}/users": {
            "get": {"tags": ["addons"], "summary": "Addon users", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/addons/{id}/sync": {
            "post": {"tags": ["addons"], "summary": "Sync addon", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/pin/generate": {
            "post": {"tags": ["pin"], "summary": "Generate PIN", "responses": {"200": {"description": "OK"}}}
        },
        "/api/pin/verify": {
            "post": {"tags": ["pin"], "summary": "Verify PIN", "responses": {"200": {"description": "OK"}}}
        },
        "/api/pin/status/{sessionId}": {
            "get": {"tags": ["pin"], "summary": "PIN status", "responses": {"200": {"description": "OK"}}}
        },
        "/api/pin/subscribe/{sessionId}": {
            "get": {"tags": ["pin"], "summary": "Subscribe to PIN events", "responses": {"200": {"description": "OK"}}}
        },
        "/api/pin/login-stremio": {
            "post": {"tags": ["pin"], "summary": "Remote login with PIN", "responses": {"200": {"description": "OK"}}}
        },
        "/api/pin/stats": {
            "get": {"tags": ["pin"], "summary": "PIN stats", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/pin/cleanup": {
            "post": {"tags": ["pin"], "summary": "Clean up PINs", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/health": {
            "get": {"tags": ["health"], "summary": "Health check", "responses": {"200": {"description": "OK"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:5000",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Stremio Panel API",
	Description:      "API for managing Stremio accounts, addons and resellers.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
