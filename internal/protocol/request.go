package protocol

import "encoding/json"

// KeepaliveCID is the client id echoed back in pong events.
const KeepaliveCID = 1234

// subscribeWire is the outbound subscribe request.
type subscribeWire struct {
	Event   string `json:"event"`
	Channel string `json:"channel"`
	Symbol  string `json:"symbol"`
}

// pingWire is the outbound ping request.
type pingWire struct {
	Event string `json:"event"`
	CID   int64  `json:"cid"`
}

// SubscribeRequest builds {"event":"subscribe","channel":<channel>,"symbol":<symbol>}.
func SubscribeRequest(channel, symbol string) []byte {
	data, _ := json.Marshal(subscribeWire{
		Event:   "subscribe",
		Channel: channel,
		Symbol:  symbol,
	})
	return data
}

// PingRequest builds {"event":"ping","cid":<cid>}.
func PingRequest(cid int64) []byte {
	data, _ := json.Marshal(pingWire{
		Event: "ping",
		CID:   cid,
	})
	return data
}
