package protocol

import "errors"

// Errors
var (
	ErrUnknownMessage = errors.New("unknown message shape")
	ErrMalformed      = errors.New("malformed message")
)

// Message is one decoded inbound frame. The set of implementations is closed:
// Info, Subscribed, Unsubscribed, Error, Pong, Snapshot, TradeUpdate, HeartBeat.
type Message interface {
	isMessage()
}

// Info is the server greeting or a maintenance notice.
type Info struct {
	Version        int
	ServerID       string
	PlatformStatus int
	Code           int    // Set on maintenance notices (e.g. 20051)
	Msg            string // Set on maintenance notices
}

// Subscribed acknowledges a subscribe request and announces the channel id.
type Subscribed struct {
	Channel string // "trades"
	ChanID  int64
	Symbol  string // "tBTCUSD"
	Pair    string // "BTCUSD"
}

// Unsubscribed acknowledges that a channel id is no longer active.
type Unsubscribed struct {
	Status string
	ChanID int64
}

// Error is an error event sent by the server. It never ends the session.
type Error struct {
	Msg  string
	Code int
}

// Pong answers a ping request.
type Pong struct {
	TS  uint64 // Server time, ms since epoch
	CID int64
}

// Snapshot is the initial batch of trades for a channel, oldest first as sent.
type Snapshot struct {
	ChanID  int64
	Updates []Update
}

// TradeUpdate is a single trade for a channel. Kind is "te" (executed) or
// "tu" (update with trade id confirmed).
type TradeUpdate struct {
	ChanID int64
	Kind   string
	Update Update
}

// HeartBeat is sent periodically on idle channels.
type HeartBeat struct {
	ChanID int64
	Tag    string
}

func (Info) isMessage()         {}
func (Subscribed) isMessage()   {}
func (Unsubscribed) isMessage() {}
func (Error) isMessage()        {}
func (Pong) isMessage()         {}
func (Snapshot) isMessage()     {}
func (TradeUpdate) isMessage()  {}
func (HeartBeat) isMessage()    {}

// Update is one trade record. The sign of Amount is the taker side
// (positive = buy, negative = sell).
type Update struct {
	ID     uint64
	MTS    uint64 // Milliseconds since epoch
	Amount float64
	Price  float64
}
