// Package service implements the audited operations behind every pai
// front-end (CLI, HTTP API, MCP tools).
//
// Each operation resolves its provider through the fallback chain, runs
// the call, and records one audit entry whether the call succeeded or not.
// The provider used is named in the entry; when no candidate could be
// selected the provider is "-".
//
// # Events
//
// Operations and health checks are published as Events to an optional
// Publisher so connected clients (the SSE hub) see them live.
package service
