package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/accidentes/internal/model"
	"github.com/Veraticus/accidentes/internal/service"
)

// RenderSummary renders the outcome of a run as a boxed report.
func RenderSummary(s service.RunSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %d records fetched, %d accidents\n",
		ChartIcon, s.RawRecords, s.Accidents)
	fmt.Fprintf(&b, "%s %d affected-party rows, %d communes\n",
		ChartIcon, s.Details, s.Communes)

	if len(s.AffectedByType) > 0 {
		b.WriteString("\n")
		b.WriteString(renderAffected(s.AffectedByType))
		b.WriteString("\n")
	}

	if len(s.Outputs) > 0 {
		b.WriteString("\n")
		kinds := make([]string, 0, len(s.Outputs))
		for kind := range s.Outputs {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			b.WriteString(FormatSuccess(fmt.Sprintf("%-7s %s", kind, s.Outputs[kind])))
			b.WriteString("\n")
		}
	}

	b.WriteString(SubtleStyle.Render(fmt.Sprintf("run %s in %s", s.RunID, s.Duration().Round(time.Millisecond))))

	return RenderBox("Accidentes de tránsito", b.String())
}

// renderAffected lists affected-party totals in catalog order, skipping zeros.
func renderAffected(totals map[string]int) string {
	rows := make([]string, 0, len(model.AffectedParties))
	for _, party := range model.AffectedParties {
		n := totals[party.Name]
		if n == 0 {
			continue
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			TableCellStyle.Width(12).Render(party.Name),
			BoldStyle.Render(fmt.Sprintf("%d", n)),
		))
	}
	return strings.Join(rows, "\n")
}

// RenderCatalog renders the affected-party catalog as a two-column table.
func RenderCatalog(parties []model.AffectedParty) string {
	lines := make([]string, 0, len(parties)+1)
	lines = append(lines, TableHeaderStyle.Render(fmt.Sprintf("%-12s%s", "id_afectado", "afectado")))
	for _, p := range parties {
		lines = append(lines, fmt.Sprintf("%-12s%s", p.ID, p.Name))
	}
	return strings.Join(lines, "\n")
}
