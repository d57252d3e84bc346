package services

import (
	"math"

	"devis/model"
)

// RoomSurfaces holds the métré of a room in metres and square metres.
type RoomSurfaces struct {
	Floor     float64
	Ceiling   float64
	Perimeter float64
	Walls     float64
	Openings  float64
}

// CalcRoomSurfaces derives floor, ceiling, perimeter and net wall surfaces
// from the room dimensions. Wall area never goes below zero.
func CalcRoomSurfaces(r model.Room) RoomSurfaces {
	floor := r.Length * r.Width
	perimeter := 2 * (r.Length + r.Width)

	var openings float64
	for _, o := range r.Openings {
		count := o.Count
		if count <= 0 {
			count = 1
		}
		openings += o.Width * o.Height * float64(count)
	}

	walls := perimeter*r.Height - openings
	if walls < 0 {
		walls = 0
	}

	return RoomSurfaces{
		Floor:     round2(floor),
		Ceiling:   round2(floor),
		Perimeter: round2(perimeter),
		Walls:     round2(walls),
		Openings:  round2(openings),
	}
}

// WorkQuantity returns the quantity billed for w in room r: the typed
// quantity in manual mode, otherwise the surface matching the mode.
func WorkQuantity(r model.Room, w model.Work) float64 {
	s := CalcRoomSurfaces(r)
	switch w.QuantityMode {
	case model.QuantityFloor:
		return s.Floor
	case model.QuantityCeiling:
		return s.Ceiling
	case model.QuantityWalls:
		return s.Walls
	case model.QuantityPerimeter:
		return s.Perimeter
	default:
		return round2(w.Quantity)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
