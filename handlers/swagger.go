package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the person service.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRouter) {
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
    <title>personstore - Swagger</title>
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

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "personstore", "version": "v0.1.0" },
  "components": {
    "schemas": {
      "Person": {"type":"object","properties":{"firstName":{"type":"string"},"lastName":{"type":"string"},"age":{"type":"integer","minimum":0}},"required":["age"]},
      "BatchResult": {"type":"object","properties":{"matched":{"type":"integer"},"applied":{"type":"integer"},"message":{"type":"string"},"failures":{"type":"array","items":{"type":"object","properties":{"id":{"type":"string"},"error":{"type":"string"}}}}}}
    }
  },
  "paths": {
    "/api/persons": {
      "post": {
        "summary": "Save a person as a new document",
        "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/Person"}}}},
        "responses": { "201": { "description": "document id" }, "400": { "description": "invalid input" }, "502": { "description": "store failure" } }
      },
      "get": {
        "summary": "List persons with from < age < to, ascending by age",
        "parameters": [
          {"name":"from","in":"query","required":true,"schema":{"type":"integer"}},
          {"name":"to","in":"query","required":true,"schema":{"type":"integer"}}
        ],
        "responses": { "200": { "description": "persons" }, "400": { "description": "invalid bound" }, "502": { "description": "store failure" } }
      },
      "patch": {
        "summary": "Merge a patch into every person equal to the criteria",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"criteria":{"$ref":"#/components/schemas/Person"},"patch":{"type":"object"}}}}}},
        "responses": { "200": { "description": "batch result" }, "207": { "description": "some writes failed" }, "400": { "description": "invalid input" }, "502": { "description": "store failure" } }
      },
      "delete": {
        "summary": "Delete every person equal to the criteria",
        "parameters": [
          {"name":"firstName","in":"query","schema":{"type":"string"}},
          {"name":"lastName","in":"query","schema":{"type":"string"}},
          {"name":"age","in":"query","required":true,"schema":{"type":"integer"}},
          {"name":"field","in":"query","deprecated":true,"schema":{"type":"string"}}
        ],
        "responses": { "200": { "description": "batch result" }, "207": { "description": "some deletes failed" }, "400": { "description": "invalid input" }, "502": { "description": "store failure" } }
      }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
