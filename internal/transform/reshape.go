package transform

import (
	"github.com/Veraticus/accidentes/internal/model"
)

// Unpivot turns the per-category count columns into detail rows. Categories are
// visited in catalog order and, within a category, accidents keep input order.
// Zero counts produce no row.
func Unpivot(accidents []model.Accident) []model.AccidentDetail {
	var details []model.AccidentDetail
	for i, party := range model.AffectedParties {
		for _, a := range accidents {
			if a.Counts[i] == 0 {
				continue
			}
			details = append(details, model.AccidentDetail{
				AccidentID:      a.ID,
				AffectedPartyID: party.ID,
				Count:           a.Counts[i],
			})
		}
	}
	return details
}

// Reshape projects the normalized accidents into the four output tables.
func Reshape(accidents []model.Accident) model.Tables {
	parties := make([]model.AffectedParty, len(model.AffectedParties))
	copy(parties, model.AffectedParties[:])

	return model.Tables{
		Accidents:       accidents,
		AffectedParties: parties,
		Details:         Unpivot(accidents),
		Communes:        Communes(accidents),
	}
}

// CountByCommune returns the number of accidents per commune id.
func CountByCommune(accidents []model.Accident) map[string]int {
	counts := make(map[string]int)
	for _, a := range accidents {
		counts[a.CommuneID]++
	}
	return counts
}

// AffectedTotals sums each category's counts across all accidents, keyed by category name.
func AffectedTotals(details []model.AccidentDetail) map[string]int {
	names := make(map[string]string, len(model.AffectedParties))
	for _, p := range model.AffectedParties {
		names[p.ID] = p.Name
	}

	totals := make(map[string]int)
	for _, d := range details {
		totals[names[d.AffectedPartyID]] += d.Count
	}
	return totals
}
