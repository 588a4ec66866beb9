// Package writer implements the per-channel trade writers.
//
// Each active channel id gets one ChannelWriter: a goroutine that owns an
// unbounded FIFO queue and a dedicated CSV file. The dispatcher pushes
// updates into the queue and never waits on disk I/O; Shutdown enqueues a
// sentinel and blocks until everything before it has been appended.
//
// Output is append-only. Each file starts with the header ID,MTS,AMOUNT,PRICE
// followed by one line per trade in arrival order.
package writer
