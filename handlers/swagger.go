package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>inksign - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// Minimal OpenAPI document describing the public endpoints.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "inksign", "version": "v0.1.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } }
  },
  "paths": {
    "/auth/login": {
      "post": {
        "summary": "Login with email and password",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"}}}}}},
        "responses": { "200": { "description": "accessToken, refreshToken and user" }, "401": { "description": "invalid credentials" } }
      }
    },
    "/auth/refresh": {
      "post": { "summary": "Refresh access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refreshToken":{"type":"string"}}}}}}, "responses": { "200": { "description": "new access token and rotated refresh token" }, "401": { "description": "invalid refresh" } } }
    },
    "/auth/logout": {
      "post": { "summary": "Logout, invalidate refresh token and revoke access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refreshToken":{"type":"string"}}}}}}, "responses": { "200": { "description": "logged out" } } }
    },
    "/api/v1/me": {
      "get": { "summary": "Current user", "security": [{"bearer": []}], "responses": { "200": { "description": "user" }, "401": { "description": "unauthorized" } } }
    },
    "/api/users": {
      "get": { "summary": "Recipient picker: id, name, email", "security": [{"bearer": []}], "responses": { "200": { "description": "users" } } }
    },
    "/api/documents": {
      "get": { "summary": "List documents", "security": [{"bearer": []}], "parameters": [{"name":"view","in":"query","schema":{"type":"string","enum":["inbox","sent","all"]}}], "responses": { "200": { "description": "documents" } } },
      "post": { "summary": "Create a signature request (JSON or multipart with file)", "security": [{"bearer": []}], "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"title":{"type":"string"},"recipientId":{"type":"string"},"recipientEmail":{"type":"string"},"fileName":{"type":"string"},"fileType":{"type":"string"},"fileData":{"type":"string"}}}}, "multipart/form-data": { "schema": {"type":"object","properties":{"title":{"type":"string"},"recipientId":{"type":"string"},"recipientEmail":{"type":"string"},"file":{"type":"string","format":"binary"}}}}}}, "responses": { "201": { "description": "created (PENDING)" }, "422": { "description": "recipient not found" } } }
    },
    "/api/documents/{id}": {
      "get": { "summary": "Document detail for sender or recipient", "security": [{"bearer": []}], "responses": { "200": { "description": "document and role" }, "404": { "description": "not found" } } }
    },
    "/api/documents/{id}/sign": {
      "post": { "summary": "Recipient signs a PENDING document", "security": [{"bearer": []}], "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"mode":{"type":"string","enum":["type","draw"]},"signature":{"type":"string"},"strokes":{"type":"integer"},"complete":{"type":"boolean"}}}}}}, "responses": { "200": { "description": "SIGNED" }, "400": { "description": "empty signature" }, "403": { "description": "not the recipient" }, "404": { "description": "not found" }, "409": { "description": "not PENDING" } } }
    },
    "/api/documents/{id}/complete": {
      "post": { "summary": "Sender completes a SIGNED document", "security": [{"bearer": []}], "responses": { "200": { "description": "COMPLETED" }, "403": { "description": "not the sender" }, "409": { "description": "not SIGNED" } } }
    },
    "/api/documents/{id}/preview": {
      "get": { "summary": "One-page PDF summary", "security": [{"bearer": []}], "responses": { "200": { "description": "application/pdf" }, "404": { "description": "not found" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "text exposition" } } } }
  }
}`
