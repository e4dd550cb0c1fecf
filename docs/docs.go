// Package docs registers the order-service OpenAPI document with swag.
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
        "/supermarkets/{sid}/checkout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["checkout"],
                "summary": "Place an order for a cart and start payment",
                "parameters": [
                    {"type": "string", "name": "sid", "in": "path", "required": true},
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CheckoutRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/CheckoutResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/HTTPError"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/HTTPError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/HTTPError"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/HTTPError"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/CheckoutResponse"}}
                }
            }
        },
        "/payments/initialize": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["payments"],
                "summary": "Initiate payment for a pending order",
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PayInitRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/PayInitResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/HTTPError"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/HTTPError"}}
                }
            }
        },
        "/payments/webhook": {
            "post": {
                "tags": ["payments"],
                "summary": "Payment provider notification",
                "parameters": [
                    {"type": "string", "name": "x-paystack-signature", "in": "header", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/HTTPError"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Exchange email and password for a session token",
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/LoginResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/HTTPError"}}
                }
            }
        },
        "/orders": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["orders"],
                "summary": "List the caller's orders",
                "parameters": [
                    {"type": "integer", "name": "limit", "in": "query"},
                    {"type": "integer", "name": "offset", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["orders"],
                "summary": "Clear the caller's order history",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/orders/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["orders"],
                "summary": "Get an order with its items",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/HTTPError"}}
                }
            }
        },
        "/admin/supermarkets/{sid}/orders": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "List a supermarket's orders",
                "parameters": [
                    {"type": "string", "name": "sid", "in": "path", "required": true},
                    {"type": "string", "name": "status", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"},
                    {"type": "integer", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/HTTPError"}}
                }
            }
        }
    },
    "definitions": {
        "HTTPError": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "CartItem": {
            "type": "object",
            "properties": {
                "product_id": {"type": "string"},
                "quantity": {"type": "integer"}
            }
        },
        "CheckoutRequest": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/CartItem"}}
            }
        },
        "CheckoutResponse": {
            "type": "object",
            "properties": {
                "order_id": {"type": "string"},
                "total_amount": {"type": "string"},
                "redirect_url": {"type": "string"},
                "clear_cart": {"type": "boolean"},
                "error": {"type": "string"}
            }
        },
        "PayInitRequest": {
            "type": "object",
            "properties": {
                "reference": {"type": "string"},
                "amount": {"type": "string"}
            }
        },
        "PayInitResponse": {
            "type": "object",
            "properties": {
                "authorization_url": {"type": "string"},
                "reference": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "LoginResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "expires_at": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "mercado order-service",
	Description:      "Checkout, order history and payment reconciliation.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
