package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tmarquez/geminiflow/internal/models"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the known model names",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, m := range models.AllModels() {
			marker := " "
			if m.Name == models.DefaultModel.Name {
				marker = "*"
			}
			kind := "text"
			if m.IsImageModel() {
				kind = "image"
			}
			fmt.Printf("%s %-28s %s\n", marker, m.Name, kind)
		}
		return nil
	},
}
