package transform

import (
	"fmt"
	"strings"

	"github.com/Veraticus/accidentes/internal/common"
	"github.com/Veraticus/accidentes/internal/model"
)

// communeRemaps gives a numeric prefix to labels that lack one in the source.
var communeRemaps = map[string]string{
	"SIN INFORMACION": "25. SIN INFORMACION",
	"FLORIDABLANCA":   "26. FLORIDABLANCA",
}

// RelabelCommune applies the exact-match label substitutions.
func RelabelCommune(label string) string {
	if remapped, ok := communeRemaps[label]; ok {
		return remapped
	}
	return label
}

// SplitCommune relabels a commune label of the form "NN. NAME" and splits it into
// the catalog id ("C" + NN) and display name.
func SplitCommune(label string) (model.Commune, error) {
	label = RelabelCommune(label)
	if len(label) < 4 || !isDigit(label[0]) || !isDigit(label[1]) {
		return model.Commune{}, fmt.Errorf("%w: %q", common.ErrMalformedCommune, label)
	}

	return model.Commune{
		ID:   "C" + label[:2],
		// label[3:] keeps the separator space ("05. SUAREZ" -> " SUAREZ"); names are stored without it.
		Name: strings.TrimSpace(label[3:]),
	}, nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// Communes builds the commune catalog: one entry per id, first occurrence wins.
func Communes(accidents []model.Accident) []model.Commune {
	seen := make(map[string]bool)
	var communes []model.Commune
	for _, a := range accidents {
		if seen[a.CommuneID] {
			continue
		}
		seen[a.CommuneID] = true
		communes = append(communes, model.Commune{ID: a.CommuneID, Name: a.CommuneName})
	}
	return communes
}
