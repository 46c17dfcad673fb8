package importitems

import "slices"

type ModelType string

const (
	ModelTypeClients     ModelType = "clients"
	ModelTypeDebts       ModelType = "debts"
	ModelTypeRouteStops  ModelType = "route_stops"
	ModelTypeAssignments ModelType = "assignments"
)

// ModelTypes lists the importable types in dependency order: clients before
// debts and route stops, routes before assignments.
var ModelTypes = []ModelType{ModelTypeClients, ModelTypeDebts, ModelTypeRouteStops, ModelTypeAssignments}

func KnownModelType(s string) bool {
	return slices.Contains(ModelTypes, ModelType(s))
}
