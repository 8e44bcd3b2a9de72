package model

// NumAffectedParties is the number of affected-party categories in the dataset.
const NumAffectedParties = 12

// AffectedParty is a category of entity involved in an accident.
type AffectedParty struct {
	ID   string
	Name string
}

// AffectedParties is the fixed catalog, in the order the dataset declares its count columns.
var AffectedParties = [NumAffectedParties]AffectedParty{
	{ID: "AF0", Name: "peaton"},
	{ID: "AF1", Name: "automovil"},
	{ID: "AF2", Name: "campaero"},
	{ID: "AF3", Name: "camioneta"},
	{ID: "AF4", Name: "micro"},
	{ID: "AF5", Name: "buseta"},
	{ID: "AF6", Name: "bus"},
	{ID: "AF7", Name: "camion"},
	{ID: "AF8", Name: "volqueta"},
	{ID: "AF9", Name: "moto"},
	{ID: "AF10", Name: "bicicleta"},
	{ID: "AF11", Name: "otro"},
}

// AccidentDetail is one unpivoted (accident, party type, count) row.
type AccidentDetail struct {
	AccidentID      string
	AffectedPartyID string
	Count           int
}

// Commune is an administrative subdivision used to bucket accidents.
type Commune struct {
	ID   string
	Name string
}
