package chart

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/accidentes/internal/model"
)

func fixture() ([]model.Accident, []model.Commune) {
	accidents := []model.Accident{
		{ID: "1", CommuneID: "C05"},
		{ID: "2", CommuneID: "C25"},
		{ID: "3", CommuneID: "C25"},
		{ID: "4", CommuneID: "C26"},
		{ID: "5", CommuneID: "C05"},
		{ID: "6", CommuneID: "C25"},
	}
	communes := []model.Commune{
		{ID: "C05", Name: "SUAREZ"},
		{ID: "C25", Name: "SIN INFORMACION"},
		{ID: "C26", Name: "FLORIDABLANCA"},
		{ID: "C01", Name: "NORTE"},
	}
	return accidents, communes
}

func TestCommuneCounts(t *testing.T) {
	got := CommuneCounts(fixture())

	assert.Equal(t, []CommuneCount{
		{Name: "SIN INFORMACION", Count: 3},
		{Name: "SUAREZ", Count: 2},
		{Name: "FLORIDABLANCA", Count: 1},
		{Name: "NORTE", Count: 0},
	}, got)
}

func TestRenderCommuneChart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charts", "comunas.png")
	accidents, communes := fixture()

	require.NoError(t, RenderCommuneChart(path, accidents, communes))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), data[:4])
}

func TestRenderCommuneChartEmpty(t *testing.T) {
	err := RenderCommuneChart(filepath.Join(t.TempDir(), "c.png"), nil, nil)
	assert.Error(t, err)
}
