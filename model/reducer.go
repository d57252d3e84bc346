package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tiendc/go-deepcopy"
)

// Reduce applies action to a deep copy of state and returns the new state.
// The input is never modified; on error it is returned unchanged.
func Reduce(state State, action Action, now time.Time) (State, error) {
	if action == nil {
		return state, fmt.Errorf("%w: nil", ErrUnknownAction)
	}

	var next State
	if err := deepcopy.Copy(&next, &state); err != nil {
		return state, fmt.Errorf("copy state: %w", err)
	}
	if err := action.apply(&next, now); err != nil {
		return state, fmt.Errorf("%s: %w", action.Type(), err)
	}

	next.Version = max(next.Version, state.Version) + 1
	next.UpdatedAt = now
	return next, nil
}

// Clone returns a deep copy of the state.
func (s State) Clone() (State, error) {
	var out State
	if err := deepcopy.Copy(&out, &s); err != nil {
		return State{}, err
	}
	return out, nil
}

func newID() string {
	return uuid.NewString()
}

func (s *State) roomIndex(id string) (int, error) {
	for i := range s.Rooms {
		if s.Rooms[i].ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrRoomNotFound, id)
}

func (a SetCompany) apply(s *State, _ time.Time) error {
	s.Company = a.Company
	return nil
}

func (a SetClient) apply(s *State, _ time.Time) error {
	s.Client = a.Client
	return nil
}

func (a SetProperty) apply(s *State, _ time.Time) error {
	s.Property = a.Property
	return nil
}

func (a SetMetadata) apply(s *State, _ time.Time) error {
	md := a.Metadata
	if md.Status == "" {
		md.Status = s.Metadata.Status
	}
	if md.IssueDate.IsZero() {
		md.IssueDate = s.Metadata.IssueDate
	}
	s.Metadata = md
	return nil
}

func (a SetSettings) apply(s *State, _ time.Time) error {
	s.Settings = a.Settings
	return nil
}

func (a AddRoom) apply(s *State, _ time.Time) error {
	room := a.Room
	if room.ID == "" {
		room.ID = newID()
	}
	if _, err := s.roomIndex(room.ID); err == nil {
		return fmt.Errorf("room %s already exists", room.ID)
	}
	normalizeRoom(&room)
	s.Rooms = append(s.Rooms, room)
	return nil
}

func (a UpdateRoom) apply(s *State, _ time.Time) error {
	i, err := s.roomIndex(a.Room.ID)
	if err != nil {
		return err
	}
	current := &s.Rooms[i]
	current.Name = a.Room.Name
	current.Kind = a.Room.Kind
	current.Length = a.Room.Length
	current.Width = a.Room.Width
	current.Height = a.Room.Height
	current.Notes = a.Room.Notes
	if a.Room.Openings != nil {
		current.Openings = a.Room.Openings
	}
	if a.Room.Works != nil {
		current.Works = a.Room.Works
	}
	normalizeRoom(current)
	return nil
}

func (a RemoveRoom) apply(s *State, _ time.Time) error {
	i, err := s.roomIndex(a.RoomID)
	if err != nil {
		return err
	}
	s.Rooms = append(s.Rooms[:i], s.Rooms[i+1:]...)
	return nil
}

func (a MoveRoom) apply(s *State, _ time.Time) error {
	i, err := s.roomIndex(a.RoomID)
	if err != nil {
		return err
	}
	target := a.Index
	if target < 0 {
		target = 0
	}
	if target > len(s.Rooms)-1 {
		target = len(s.Rooms) - 1
	}
	room := s.Rooms[i]
	rest := append(s.Rooms[:i:i], s.Rooms[i+1:]...)
	moved := make([]Room, 0, len(s.Rooms))
	moved = append(moved, rest[:target]...)
	moved = append(moved, room)
	moved = append(moved, rest[target:]...)
	s.Rooms = moved
	return nil
}

func (a DuplicateRoom) apply(s *State, _ time.Time) error {
	i, err := s.roomIndex(a.RoomID)
	if err != nil {
		return err
	}
	var dup Room
	if err := deepcopy.Copy(&dup, &s.Rooms[i]); err != nil {
		return fmt.Errorf("copy room: %w", err)
	}
	dup.ID = newID()
	if a.Name != "" {
		dup.Name = a.Name
	} else {
		dup.Name = dup.Name + " (copie)"
	}
	for j := range dup.Openings {
		dup.Openings[j].ID = newID()
	}
	for j := range dup.Works {
		dup.Works[j].ID = newID()
	}

	rooms := make([]Room, 0, len(s.Rooms)+1)
	rooms = append(rooms, s.Rooms[:i+1]...)
	rooms = append(rooms, dup)
	rooms = append(rooms, s.Rooms[i+1:]...)
	s.Rooms = rooms
	return nil
}

func (a AddOpening) apply(s *State, _ time.Time) error {
	i, err := s.roomIndex(a.RoomID)
	if err != nil {
		return err
	}
	o := a.Opening
	if o.ID == "" {
		o.ID = newID()
	}
	if o.Count == 0 {
		o.Count = 1
	}
	if o.Kind == "" {
		o.Kind = OpeningOther
	}
	s.Rooms[i].Openings = append(s.Rooms[i].Openings, o)
	return nil
}

func (a RemoveOpening) apply(s *State, _ time.Time) error {
	i, err := s.roomIndex(a.RoomID)
	if err != nil {
		return err
	}
	openings := s.Rooms[i].Openings
	for j := range openings {
		if openings[j].ID == a.OpeningID {
			s.Rooms[i].Openings = append(openings[:j], openings[j+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrOpeningNotFound, a.OpeningID)
}

func (a AddWork) apply(s *State, _ time.Time) error {
	i, err := s.roomIndex(a.RoomID)
	if err != nil {
		return err
	}
	w := a.Work
	if w.ID == "" {
		w.ID = newID()
	}
	if w.QuantityMode == "" {
		w.QuantityMode = QuantityManual
	}
	s.Rooms[i].Works = append(s.Rooms[i].Works, w)
	return nil
}

func (a UpdateWork) apply(s *State, _ time.Time) error {
	i, err := s.roomIndex(a.RoomID)
	if err != nil {
		return err
	}
	works := s.Rooms[i].Works
	for j := range works {
		if works[j].ID == a.Work.ID {
			w := a.Work
			if w.QuantityMode == "" {
				w.QuantityMode = QuantityManual
			}
			works[j] = w
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrWorkNotFound, a.Work.ID)
}

func (a RemoveWork) apply(s *State, _ time.Time) error {
	i, err := s.roomIndex(a.RoomID)
	if err != nil {
		return err
	}
	works := s.Rooms[i].Works
	for j := range works {
		if works[j].ID == a.WorkID {
			s.Rooms[i].Works = append(works[:j], works[j+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrWorkNotFound, a.WorkID)
}

func (Reset) apply(s *State, now time.Time) error {
	fresh := NewState(now)
	fresh.Company = s.Company
	fresh.Settings = s.Settings
	fresh.RemoteID = ""
	*s = fresh
	return nil
}

func (a Hydrate) apply(s *State, _ time.Time) error {
	var in State
	if err := deepcopy.Copy(&in, &a.State); err != nil {
		return fmt.Errorf("copy state: %w", err)
	}
	if in.Rooms == nil {
		in.Rooms = []Room{}
	}
	for i := range in.Rooms {
		normalizeRoom(&in.Rooms[i])
	}
	*s = in
	return nil
}

func normalizeRoom(r *Room) {
	if r.Openings == nil {
		r.Openings = []Opening{}
	}
	if r.Works == nil {
		r.Works = []Work{}
	}
	for i := range r.Openings {
		if r.Openings[i].ID == "" {
			r.Openings[i].ID = newID()
		}
		if r.Openings[i].Count == 0 {
			r.Openings[i].Count = 1
		}
	}
	for i := range r.Works {
		if r.Works[i].ID == "" {
			r.Works[i].ID = newID()
		}
		if r.Works[i].QuantityMode == "" {
			r.Works[i].QuantityMode = QuantityManual
		}
	}
}
