// Package ingest decodes backend payloads arriving over the webhook API or
// MQTT and applies them to the scenario directory and the history ledger.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dokzlo13/lightplan/internal/eventbus"
	"github.com/dokzlo13/lightplan/internal/jsonx"
)

// ErrUnrecognized is returned for payloads of an unknown shape.
var ErrUnrecognized = errors.New("unrecognized payload")

// Publisher accepts decoded events. *eventbus.Bus satisfies it.
type Publisher interface {
	Publish(event eventbus.Event) int
}

// Decode parses a JSON body.
func Decode(data []byte) (any, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return raw, nil
}

// ScenarioEvent classifies a scenario payload: a list (bare array or
// {items|scenarios}) reseeds the directory, {"reset": true} clears it, and a
// single object updates one scenario.
func ScenarioEvent(raw any, source string) (eventbus.Event, error) {
	if _, ok := jsonx.Slice(raw); ok {
		return eventbus.Event{Type: eventbus.EventTypeScenarioList, Source: source, Payload: raw}, nil
	}

	obj, ok := jsonx.Map(raw)
	if !ok {
		return eventbus.Event{}, fmt.Errorf("scenario payload: %w", ErrUnrecognized)
	}
	if jsonx.Bool(obj["reset"]) {
		return eventbus.Event{Type: eventbus.EventTypeReset, Source: source}, nil
	}
	if _, ok := jsonx.Slice(jsonx.Pick(obj, "items", "scenarios")); ok {
		return eventbus.Event{Type: eventbus.EventTypeScenarioList, Source: source, Payload: raw}, nil
	}
	return eventbus.Event{Type: eventbus.EventTypeScenarioUpdate, Source: source, Payload: raw}, nil
}

// HistoryEvent wraps raw history events: an array, {"events": [...]} or a
// single event object.
func HistoryEvent(raw any, source string) (eventbus.Event, error) {
	list, ok := jsonx.Slice(raw)
	if !ok {
		obj, isObj := jsonx.Map(raw)
		if !isObj {
			return eventbus.Event{}, fmt.Errorf("history payload: %w", ErrUnrecognized)
		}
		if events, ok := jsonx.Slice(obj["events"]); ok {
			list = events
		} else {
			list = []any{obj}
		}
	}
	return eventbus.Event{Type: eventbus.EventTypeHistory, Source: source, Payload: list}, nil
}
