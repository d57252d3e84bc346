package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

func mustReduce(t *testing.T, s State, a Action) State {
	t.Helper()
	next, err := Reduce(s, a, t0)
	require.NoError(t, err)
	return next
}

func TestNewState_Defaults(t *testing.T) {
	s := NewState(t0)
	assert.Equal(t, 30, s.Metadata.ValidityDays)
	assert.Equal(t, 30.0, s.Metadata.DepositPercent)
	assert.Equal(t, StatusDraft, s.Metadata.Status)
	assert.Equal(t, t0, s.Metadata.IssueDate)
	assert.Empty(t, s.Rooms)
	assert.Equal(t, t0.AddDate(0, 0, 30), s.Metadata.ValidUntil())
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	s := mustReduce(t, NewState(t0), AddRoom{Room: Room{ID: "r1", Name: "Cuisine"}})
	before := s.Rooms[0].Name

	next := mustReduce(t, s, UpdateRoom{Room: Room{ID: "r1", Name: "Salon"}})
	next = mustReduce(t, next, AddWork{RoomID: "r1", Work: Work{Label: "Peinture", Unit: "m²"}})

	assert.Equal(t, before, s.Rooms[0].Name)
	assert.Empty(t, s.Rooms[0].Works)
	assert.Equal(t, "Salon", next.Rooms[0].Name)
	assert.Len(t, next.Rooms[0].Works, 1)
}

func TestReduce_VersionAndTimestamp(t *testing.T) {
	s := NewState(t0.Add(-time.Hour))
	s = mustReduce(t, s, SetClient{Client: Client{LastName: "Martin"}})
	s = mustReduce(t, s, SetProperty{Property: Property{Kind: PropertyHouse}})
	assert.Equal(t, 2, s.Version)
	assert.Equal(t, t0, s.UpdatedAt)
}

func TestReduce_ErrorKeepsState(t *testing.T) {
	s := mustReduce(t, NewState(t0), AddRoom{Room: Room{ID: "r1", Name: "Cuisine"}})
	next, err := Reduce(s, RemoveRoom{RoomID: "missing"}, t0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRoomNotFound))
	assert.Equal(t, s.Version, next.Version)
	assert.Len(t, next.Rooms, 1)
}

func TestReduce_RoomLifecycle(t *testing.T) {
	s := NewState(t0)
	s = mustReduce(t, s, AddRoom{Room: Room{ID: "a", Name: "Entrée"}})
	s = mustReduce(t, s, AddRoom{Room: Room{ID: "b", Name: "Salon"}})
	s = mustReduce(t, s, AddRoom{Room: Room{Name: "Chambre"}})
	require.Len(t, s.Rooms, 3)
	assert.NotEmpty(t, s.Rooms[2].ID)
	assert.NotNil(t, s.Rooms[2].Works)

	_, err := Reduce(s, AddRoom{Room: Room{ID: "a", Name: "Dup"}}, t0)
	assert.Error(t, err)

	s = mustReduce(t, s, MoveRoom{RoomID: "a", Index: 10})
	assert.Equal(t, []string{"b", s.Rooms[1].ID, "a"}, []string{s.Rooms[0].ID, s.Rooms[1].ID, s.Rooms[2].ID})

	s = mustReduce(t, s, MoveRoom{RoomID: "a", Index: -3})
	assert.Equal(t, "a", s.Rooms[0].ID)

	s = mustReduce(t, s, RemoveRoom{RoomID: "b"})
	assert.Len(t, s.Rooms, 2)
	_, ok := s.Room("b")
	assert.False(t, ok)
}

func TestReduce_DuplicateRoom(t *testing.T) {
	s := NewState(t0)
	s = mustReduce(t, s, AddRoom{Room: Room{ID: "a", Name: "Salle de bain", Length: 2, Width: 3}})
	s = mustReduce(t, s, AddWork{RoomID: "a", Work: Work{ID: "w1", Label: "Faïence", Unit: "m²", Quantity: 12}})
	s = mustReduce(t, s, AddOpening{RoomID: "a", Opening: Opening{Kind: OpeningDoor, Width: 0.8, Height: 2.1}})
	s = mustReduce(t, s, AddRoom{Room: Room{ID: "z", Name: "Garage"}})

	s = mustReduce(t, s, DuplicateRoom{RoomID: "a"})
	require.Len(t, s.Rooms, 3)
	dup := s.Rooms[1]
	assert.Equal(t, "Salle de bain (copie)", dup.Name)
	assert.NotEqual(t, "a", dup.ID)
	require.Len(t, dup.Works, 1)
	assert.NotEqual(t, "w1", dup.Works[0].ID)
	assert.Equal(t, 12.0, dup.Works[0].Quantity)
	require.Len(t, dup.Openings, 1)
	assert.NotEqual(t, s.Rooms[0].Openings[0].ID, dup.Openings[0].ID)
	assert.Equal(t, "z", s.Rooms[2].ID)
}

func TestReduce_WorkLifecycle(t *testing.T) {
	s := mustReduce(t, NewState(t0), AddRoom{Room: Room{ID: "a", Name: "Cuisine"}})
	s = mustReduce(t, s, AddWork{RoomID: "a", Work: Work{ID: "w", Label: "Carrelage", Unit: "m²"}})
	assert.Equal(t, QuantityManual, s.Rooms[0].Works[0].QuantityMode)

	s = mustReduce(t, s, UpdateWork{RoomID: "a", Work: Work{ID: "w", Label: "Carrelage sol", Unit: "m²", QuantityMode: QuantityFloor}})
	assert.Equal(t, "Carrelage sol", s.Rooms[0].Works[0].Label)
	assert.Equal(t, QuantityFloor, s.Rooms[0].Works[0].QuantityMode)

	_, err := Reduce(s, UpdateWork{RoomID: "a", Work: Work{ID: "nope"}}, t0)
	assert.ErrorIs(t, err, ErrWorkNotFound)

	s = mustReduce(t, s, RemoveWork{RoomID: "a", WorkID: "w"})
	assert.Empty(t, s.Rooms[0].Works)

	_, err = Reduce(s, RemoveOpening{RoomID: "a", OpeningID: "x"}, t0)
	assert.ErrorIs(t, err, ErrOpeningNotFound)
}

func TestReduce_UpdateRoomKeepsChildren(t *testing.T) {
	s := mustReduce(t, NewState(t0), AddRoom{Room: Room{ID: "a", Name: "Cuisine"}})
	s = mustReduce(t, s, AddWork{RoomID: "a", Work: Work{Label: "Peinture", Unit: "m²"}})
	s = mustReduce(t, s, UpdateRoom{Room: Room{ID: "a", Name: "Cuisine ouverte", Length: 4}})
	assert.Len(t, s.Rooms[0].Works, 1)
	assert.Equal(t, 4.0, s.Rooms[0].Length)
}

func TestReduce_SetMetadataKeepsStatusAndDate(t *testing.T) {
	s := NewState(t0)
	s = mustReduce(t, s, SetMetadata{Metadata: Metadata{Title: "Rénovation", DepositPercent: 40}})
	assert.Equal(t, "Rénovation", s.Metadata.Title)
	assert.Equal(t, StatusDraft, s.Metadata.Status)
	assert.Equal(t, t0, s.Metadata.IssueDate)
}

func TestReduce_ResetKeepsCompanyAndSettings(t *testing.T) {
	s := NewState(t0)
	s = mustReduce(t, s, SetCompany{Company: Company{Name: "Atelier Dupont"}})
	s = mustReduce(t, s, SetSettings{Settings: PDFSettings{Texts: TextSettings{CoverTitle: "PROPOSITION"}}})
	s = mustReduce(t, s, AddRoom{Room: Room{Name: "Cuisine"}})
	s.RemoteID = "abc"

	s = mustReduce(t, s, Reset{})
	assert.Empty(t, s.Rooms)
	assert.Empty(t, s.RemoteID)
	assert.Equal(t, "Atelier Dupont", s.Company.Name)
	assert.Equal(t, "PROPOSITION", s.Settings.Texts.CoverTitle)
	assert.Equal(t, 4, s.Version)
}

func TestReduce_HydrateKeepsHigherVersion(t *testing.T) {
	loaded := NewState(t0)
	loaded.Version = 12
	loaded.Rooms = []Room{{ID: "a", Name: "Salon"}}

	s := mustReduce(t, NewState(t0), Hydrate{State: loaded})
	assert.Equal(t, 13, s.Version)
	assert.NotNil(t, s.Rooms[0].Works)
	assert.NotNil(t, s.Rooms[0].Openings)
}

func TestDecodeEnvelope(t *testing.T) {
	raw := []byte(`{"type":"add_work","payload":{"room_id":"a","work":{"label":"Enduit","unit":"m²","quantity":3}}}`)
	action, err := DecodeEnvelope(raw)
	require.NoError(t, err)
	aw, ok := action.(*AddWork)
	require.True(t, ok)
	assert.Equal(t, "a", aw.RoomID)
	assert.Equal(t, 3.0, aw.Work.Quantity)

	s := mustReduce(t, NewState(t0), AddRoom{Room: Room{ID: "a", Name: "Salon"}})
	s = mustReduce(t, s, action)
	assert.Equal(t, "Enduit", s.Rooms[0].Works[0].Label)

	_, err = DecodeEnvelope([]byte(`{"type":"explode"}`))
	assert.ErrorIs(t, err, ErrUnknownAction)

	reset, err := DecodeAction("reset", json.RawMessage("null"))
	require.NoError(t, err)
	assert.Equal(t, "reset", reset.Type())
}

func TestDefaultVATRate(t *testing.T) {
	tests := []struct {
		name string
		p    Property
		want float64
	}{
		{"old apartment", Property{Kind: PropertyApartment, OlderThanTwoYears: true}, 10},
		{"new house", Property{Kind: PropertyHouse}, 20},
		{"old shop", Property{Kind: PropertyCommercial, OlderThanTwoYears: true}, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultVATRate(tt.p))
		})
	}
}

func TestClientDisplayName(t *testing.T) {
	assert.Equal(t, "SCI Les Tilleuls", Client{CompanyName: " SCI Les Tilleuls ", LastName: "X"}.DisplayName())
	assert.Equal(t, "Mme Claire Martin", Client{Civility: "Mme", FirstName: "Claire", LastName: "Martin"}.DisplayName())
	assert.Equal(t, "", Client{}.DisplayName())
}
