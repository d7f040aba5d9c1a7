// Package api provides the local HTTP control API and WebSocket event
// stream for blinksync.
//
// It exposes the device registry and the fleet intents (arm, motion
// detection, thumbnail and clip capture, live view) to local clients, the
// command journal, and Prometheus metrics.
//
// The server follows the same lifecycle pattern as the infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Authentication: when security.jwt.secret is set every route except
// health and metrics requires an HS256 bearer token (see IssueToken). The
// WebSocket endpoint also accepts the token as a "token" query parameter.
package api
