package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/accidentes/internal/cli"
	"github.com/Veraticus/accidentes/internal/model"
)

func catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Print the affected-party catalog",
		Long: `Print the fixed catalog of affected-party types that backs the afectados
table. Identifiers follow the order of the count columns in the dataset.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderCatalog(model.AffectedParties[:]))
		},
	}
}
