package main

// General API documentation for swaggo. Operations are annotated on the
// handlers in internal/httpapi/server.go. Regenerate internal/apidocs with
// `swag init -g cmd/suggestd/docs.go -o internal/apidocs`.
//
// @title           suggestd API
// @version         1.0
// @description     Inline writing suggestions backed by an OpenAI-compatible provider, with fuzzy caching and local fallbacks.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
