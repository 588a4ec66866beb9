package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// eventWire is the union of every field an event object may carry.
// Pointer fields distinguish "absent" from zero values during classification.
type eventWire struct {
	Event    string `json:"event"`
	Version  int    `json:"version"`
	ServerID string `json:"serverId"`
	Platform *struct {
		Status int `json:"status"`
	} `json:"platform"`

	Channel *string `json:"channel"`
	ChanID  *int64  `json:"chanId"`
	Symbol  string  `json:"symbol"`
	Pair    string  `json:"pair"`
	Status  string  `json:"status"`

	Msg  *string `json:"msg"`
	Code int     `json:"code"`

	TS  uint64 `json:"ts"`
	CID *int64 `json:"cid"`
}

// Decode classifies one inbound text frame.
// The returned error wraps ErrUnknownMessage or ErrMalformed.
func Decode(data []byte) (Message, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrMalformed)
	}

	switch trimmed[0] {
	case '{':
		return decodeEvent(trimmed)
	case '[':
		return decodeChannelData(trimmed)
	default:
		return nil, fmt.Errorf("%w: not an object or array", ErrUnknownMessage)
	}
}

// decodeEvent classifies object payloads by their "event" field plus the
// presence of the fields each event requires.
func decodeEvent(data []byte) (Message, error) {
	var wire eventWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch wire.Event {
	case "info":
		info := Info{
			Version:  wire.Version,
			ServerID: wire.ServerID,
			Code:     wire.Code,
		}
		if wire.Platform != nil {
			info.PlatformStatus = wire.Platform.Status
		}
		if wire.Msg != nil {
			info.Msg = *wire.Msg
		}
		return info, nil

	case "subscribed":
		if wire.Channel == nil || wire.ChanID == nil {
			return nil, fmt.Errorf("%w: subscribed event without channel or chanId", ErrMalformed)
		}
		return Subscribed{
			Channel: *wire.Channel,
			ChanID:  *wire.ChanID,
			Symbol:  wire.Symbol,
			Pair:    wire.Pair,
		}, nil

	case "unsubscribed":
		if wire.ChanID == nil {
			return nil, fmt.Errorf("%w: unsubscribed event without chanId", ErrMalformed)
		}
		return Unsubscribed{
			Status: wire.Status,
			ChanID: *wire.ChanID,
		}, nil

	case "error":
		if wire.Msg == nil {
			return nil, fmt.Errorf("%w: error event without msg", ErrMalformed)
		}
		return Error{
			Msg:  *wire.Msg,
			Code: wire.Code,
		}, nil

	case "pong":
		if wire.CID == nil {
			return nil, fmt.Errorf("%w: pong event without cid", ErrMalformed)
		}
		return Pong{
			TS:  wire.TS,
			CID: *wire.CID,
		}, nil
	}

	return nil, fmt.Errorf("%w: event %q", ErrUnknownMessage, wire.Event)
}

// decodeChannelData classifies array payloads by the shape of their
// second element and their arity.
func decodeChannelData(data []byte) (Message, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: array of length %d", ErrUnknownMessage, len(parts))
	}

	var chanID int64
	if err := json.Unmarshal(parts[0], &chanID); err != nil {
		return nil, fmt.Errorf("%w: channel id: %v", ErrMalformed, err)
	}

	second := bytes.TrimSpace(parts[1])
	if len(second) == 0 {
		return nil, fmt.Errorf("%w: empty second element", ErrMalformed)
	}

	switch second[0] {
	case '"':
		var tag string
		if err := json.Unmarshal(second, &tag); err != nil {
			return nil, fmt.Errorf("%w: tag: %v", ErrMalformed, err)
		}

		if tag == "hb" && len(parts) == 2 {
			return HeartBeat{ChanID: chanID, Tag: tag}, nil
		}
		if tag != "hb" && len(parts) == 3 {
			update, err := decodeUpdate(parts[2])
			if err != nil {
				return nil, err
			}
			return TradeUpdate{ChanID: chanID, Kind: tag, Update: update}, nil
		}
		return nil, fmt.Errorf("%w: tag %q with %d elements", ErrUnknownMessage, tag, len(parts))

	case '[':
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: snapshot with %d elements", ErrUnknownMessage, len(parts))
		}
		var rows []json.RawMessage
		if err := json.Unmarshal(second, &rows); err != nil {
			return nil, fmt.Errorf("%w: snapshot: %v", ErrMalformed, err)
		}
		updates := make([]Update, 0, len(rows))
		for _, row := range rows {
			update, err := decodeUpdate(row)
			if err != nil {
				return nil, err
			}
			updates = append(updates, update)
		}
		return Snapshot{ChanID: chanID, Updates: updates}, nil
	}

	return nil, fmt.Errorf("%w: unexpected second element", ErrUnknownMessage)
}

// decodeUpdate parses [ID, MTS, AMOUNT, PRICE].
func decodeUpdate(raw json.RawMessage) (Update, error) {
	row := bytes.TrimSpace(raw)
	if len(row) == 0 || row[0] != '[' {
		return Update{}, fmt.Errorf("%w: update is not an array", ErrUnknownMessage)
	}

	var fields []json.RawMessage
	if err := json.Unmarshal(row, &fields); err != nil {
		return Update{}, fmt.Errorf("%w: update: %v", ErrMalformed, err)
	}
	if len(fields) != 4 {
		return Update{}, fmt.Errorf("%w: update with %d fields, want 4", ErrUnknownMessage, len(fields))
	}

	var u Update
	if err := json.Unmarshal(fields[0], &u.ID); err != nil {
		return Update{}, fmt.Errorf("%w: update id: %v", ErrMalformed, err)
	}
	if err := json.Unmarshal(fields[1], &u.MTS); err != nil {
		return Update{}, fmt.Errorf("%w: update mts: %v", ErrMalformed, err)
	}
	if err := json.Unmarshal(fields[2], &u.Amount); err != nil {
		return Update{}, fmt.Errorf("%w: update amount: %v", ErrMalformed, err)
	}
	if err := json.Unmarshal(fields[3], &u.Price); err != nil {
		return Update{}, fmt.Errorf("%w: update price: %v", ErrMalformed, err)
	}
	return u, nil
}
