// Package api hosts the HTTP server, middleware, and REST handlers behind the
// outreach dashboard. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /login and /logout manage the session cookie.
//   - POST /api/analyze scores a single channel without signing in.
//   - /api/channels, /api/stats, /api/export and friends serve signed-in users.
//   - POST /api/fetch, /api/rescore and /api/users are admin only.
package api
