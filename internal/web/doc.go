// Package web provides the HTTP surface of the StrongLink server.
//
// # Architecture
//
// Handlers run on the Fiber framework's goroutines, outside the
// cooperative loop. Every session operation is bridged onto a fiber with
// Loop.Submit, so the loop remains the only place repository state is
// touched. The request flow mirrors the server's listener discipline:
// read the request, take the Cookie header, resolve a session (the null
// session is a valid, zero-permission result), dispatch.
//
// # Endpoints
//
// Public:
//
//	POST /login          - check credentials, mint the session cookie
//	GET  /health/live    - liveness probe
//	GET  /health/ready   - readiness probe with pool load
//
// Session-resolved (the null session passes the middleware; the operation
// decides authorization):
//
//	POST /logout         - invalidate the presented session
//	GET  /uris           - bounded list of content-addressed URIs
//	GET  /files/info     - path, type and size for one URI
//
// # Security
//
// The session cookie is HTTP-only, SameSite=Strict, and Secure unless
// explicitly disabled for HTTP-only deployments. Failed logins are rate
// limited per client address. Authentication failures are uniformly
// opaque: the wire never distinguishes unknown users from wrong passwords
// or tampered cookies.
package web
