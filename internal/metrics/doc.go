// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Inbound frame rates by decoded message kind and decode failures
//   - Updates routed to writers and updates dropped for unknown channels
//   - Active channel writers, records appended, write failures
//   - Keepalive pings sent
package metrics
