package payment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	EventChargeSuccess = "charge.success"
	EventChargeFailed  = "charge.failed"
)

var ErrMalformedPayload = errors.New("malformed webhook payload")

// Event is one of ChargeSuccess, ChargeFailed or UnrecognizedEvent.
type Event interface {
	EventType() string
	isEvent()
}

type ChargeSuccess struct {
	Reference string
	Amount    int64 // minor units
}

type ChargeFailed struct {
	Reference string
	Amount    int64
}

// UnrecognizedEvent is any well-formed notification of a type this service does not act on.
type UnrecognizedEvent struct {
	Type string
}

func (ChargeSuccess) EventType() string       { return EventChargeSuccess }
func (ChargeFailed) EventType() string        { return EventChargeFailed }
func (e UnrecognizedEvent) EventType() string { return e.Type }

func (ChargeSuccess) isEvent()     {}
func (ChargeFailed) isEvent()      {}
func (UnrecognizedEvent) isEvent() {}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type chargeData struct {
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
}

// ParseEvent decodes an already authenticated webhook body.
func ParseEvent(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("%w: missing event", ErrMalformedPayload)
	}

	switch env.Event {
	case EventChargeSuccess, EventChargeFailed:
	default:
		return UnrecognizedEvent{Type: env.Event}, nil
	}

	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return nil, fmt.Errorf("%w: missing data", ErrMalformedPayload)
	}
	var d chargeData
	if err := json.Unmarshal(env.Data, &d); err != nil {
		return nil, fmt.Errorf("%w: data: %v", ErrMalformedPayload, err)
	}
	if d.Reference == "" {
		return nil, fmt.Errorf("%w: missing data.reference", ErrMalformedPayload)
	}
	if d.Amount < 0 {
		return nil, fmt.Errorf("%w: negative data.amount", ErrMalformedPayload)
	}

	if env.Event == EventChargeSuccess {
		return ChargeSuccess{Reference: d.Reference, Amount: d.Amount}, nil
	}
	return ChargeFailed{Reference: d.Reference, Amount: d.Amount}, nil
}
