// Package connection implements the feed transport and the Dispatcher.
//
// The Dispatcher:
//   - Opens one WebSocket connection and subscribes every configured instrument
//   - Maps server-assigned channel ids to per-channel writers
//   - Forwards snapshot and trade updates to the writer for their channel id
//   - Sends a keepalive ping when no ping has gone out for the keepalive interval
//   - Checks the run context after every frame and every idle tick, and on
//     cancellation stops all writers before closing the connection
//
// There is no reconnection: a lost connection ends Run with an error.
package connection
