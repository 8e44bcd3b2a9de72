// Package transform normalizes raw accident records and reshapes them into
// the accident, affected-party, detail, and commune tables.
//
// # Source conventions
//
// Time of day arrives in 12-hour form followed by a meridiem marker:
//
//	"01:15:30p.m."  or  "01:15:30 p. m."  ->  "13:15:30"
//	"12:15:30 a. m."                      ->  "00:15:30"
//
// Commune labels carry a two-digit ordinal prefix, "05. SUAREZ". Two labels
// in the dataset lack it and are relabeled before the split:
//
//	"SIN INFORMACION" -> "25. SIN INFORMACION"
//	"FLORIDABLANCA"   -> "26. FLORIDABLANCA"
//
// Day labels carry a four-character ordinal prefix, "01. LUNES", which is dropped.
package transform
