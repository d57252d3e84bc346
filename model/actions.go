package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrWorkNotFound    = errors.New("work not found")
	ErrOpeningNotFound = errors.New("opening not found")
	ErrUnknownAction   = errors.New("unknown action")
)

// Action is a state transition applied by Reduce.
type Action interface {
	Type() string
	apply(s *State, now time.Time) error
}

type SetCompany struct {
	Company Company `json:"company"`
}

type SetClient struct {
	Client Client `json:"client"`
}

type SetProperty struct {
	Property Property `json:"property"`
}

type SetMetadata struct {
	Metadata Metadata `json:"metadata"`
}

type SetSettings struct {
	Settings PDFSettings `json:"settings"`
}

type AddRoom struct {
	Room Room `json:"room"`
}

// UpdateRoom replaces the room's name, kind, dimensions and notes. Openings and
// works are only replaced when the payload carries them.
type UpdateRoom struct {
	Room Room `json:"room"`
}

type RemoveRoom struct {
	RoomID string `json:"room_id"`
}

// MoveRoom moves a room to Index, clamped to the room list bounds.
type MoveRoom struct {
	RoomID string `json:"room_id"`
	Index  int    `json:"index"`
}

// DuplicateRoom inserts a copy of a room right after it, with fresh ids.
type DuplicateRoom struct {
	RoomID string `json:"room_id"`
	Name   string `json:"name,omitempty"`
}

type AddOpening struct {
	RoomID  string  `json:"room_id"`
	Opening Opening `json:"opening"`
}

type RemoveOpening struct {
	RoomID    string `json:"room_id"`
	OpeningID string `json:"opening_id"`
}

type AddWork struct {
	RoomID string `json:"room_id"`
	Work   Work   `json:"work"`
}

type UpdateWork struct {
	RoomID string `json:"room_id"`
	Work   Work   `json:"work"`
}

type RemoveWork struct {
	RoomID string `json:"room_id"`
	WorkID string `json:"work_id"`
}

// Reset clears the quote but keeps the company and the PDF settings.
type Reset struct{}

// Hydrate replaces the whole state, e.g. after loading it from storage.
type Hydrate struct {
	State State `json:"state"`
}

func (SetCompany) Type() string    { return "set_company" }
func (SetClient) Type() string     { return "set_client" }
func (SetProperty) Type() string   { return "set_property" }
func (SetMetadata) Type() string   { return "set_metadata" }
func (SetSettings) Type() string   { return "set_settings" }
func (AddRoom) Type() string       { return "add_room" }
func (UpdateRoom) Type() string    { return "update_room" }
func (RemoveRoom) Type() string    { return "remove_room" }
func (MoveRoom) Type() string      { return "move_room" }
func (DuplicateRoom) Type() string { return "duplicate_room" }
func (AddOpening) Type() string    { return "add_opening" }
func (RemoveOpening) Type() string { return "remove_opening" }
func (AddWork) Type() string       { return "add_work" }
func (UpdateWork) Type() string    { return "update_work" }
func (RemoveWork) Type() string    { return "remove_work" }
func (Reset) Type() string         { return "reset" }
func (Hydrate) Type() string       { return "hydrate" }

var actionFactories = map[string]func() Action{
	"set_company":    func() Action { return &SetCompany{} },
	"set_client":     func() Action { return &SetClient{} },
	"set_property":   func() Action { return &SetProperty{} },
	"set_metadata":   func() Action { return &SetMetadata{} },
	"set_settings":   func() Action { return &SetSettings{} },
	"add_room":       func() Action { return &AddRoom{} },
	"update_room":    func() Action { return &UpdateRoom{} },
	"remove_room":    func() Action { return &RemoveRoom{} },
	"move_room":      func() Action { return &MoveRoom{} },
	"duplicate_room": func() Action { return &DuplicateRoom{} },
	"add_opening":    func() Action { return &AddOpening{} },
	"remove_opening": func() Action { return &RemoveOpening{} },
	"add_work":       func() Action { return &AddWork{} },
	"update_work":    func() Action { return &UpdateWork{} },
	"remove_work":    func() Action { return &RemoveWork{} },
	"reset":          func() Action { return &Reset{} },
	"hydrate":        func() Action { return &Hydrate{} },
}

// Envelope is the wire form of an action: {"type": "...", "payload": {...}}.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DecodeAction turns a wire action into a typed Action.
func DecodeAction(kind string, payload json.RawMessage) (Action, error) {
	factory, ok := actionFactories[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, kind)
	}
	action := factory()
	if len(payload) > 0 && string(payload) != "null" {
		if err := json.Unmarshal(payload, action); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
	}
	return action, nil
}

// DecodeEnvelope decodes a raw {"type", "payload"} document.
func DecodeEnvelope(raw []byte) (Action, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode action: %w", err)
	}
	return DecodeAction(env.Type, env.Payload)
}
