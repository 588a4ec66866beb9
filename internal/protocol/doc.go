// Package protocol implements the Bitfinex v2 WebSocket message model.
//
// Inbound frames are untagged: object payloads carry an "event" field,
// while channel data arrives as JSON arrays whose meaning depends on the
// shape of the second element:
//
//	[CHAN_ID, "hb"]                       heartbeat
//	[CHAN_ID, [[ID, MTS, AMOUNT, PRICE]]] snapshot
//	[CHAN_ID, "te", [ID, MTS, AMOUNT, PRICE]] single trade update
//
// Decode classifies a frame into one of the Message variants. It is pure
// and never performs I/O.
package protocol
