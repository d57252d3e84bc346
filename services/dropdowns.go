package services

// UnitOptions lists the units a work can be priced in.
var UnitOptions = []string{
	"u",
	"m²",
	"ml",
	"m³",
	"kg",
	"h",
	"j",
	"forfait",
	"ens",
	"lot",
}

// VATOptions lists the French TVA rates a work can carry.
var VATOptions = []float64{0, 5.5, 10, 20}

// RoomKindOptions lists common room kinds offered when adding a room.
var RoomKindOptions = []string{
	"Séjour",
	"Cuisine",
	"Chambre",
	"Salle de bain",
	"WC",
	"Entrée",
	"Couloir",
	"Bureau",
	"Buanderie",
	"Garage",
	"Combles",
	"Extérieur",
}
