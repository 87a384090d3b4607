package cli

import (
	"github.com/spf13/cobra"

	"github.com/i2y/orchestrate/internal/usecase"
)

func (a *app) knowledgeBasesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "knowledge-bases",
		Aliases: []string{"kb"},
		Short:   "Import and manage knowledge bases",
	}

	var file string
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Create or update a knowledge base from a spec file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.deps.ImportKBs.Import(cmd.Context(), file)
			if err != nil {
				return err
			}
			printResults(cmd.OutOrStdout(), *res)
			return nil
		},
	}
	importCmd.Flags().StringVarP(&file, "file", "f", "", "knowledge base spec file (yaml or json)")
	_ = importCmd.MarkFlagRequired("file")

	cmd.AddCommand(
		importCmd,
		a.listCommand("List knowledge bases", usecase.StoreKnowledgeBases),
		a.removeCommand("Remove a knowledge base by name", usecase.StoreKnowledgeBases),
	)
	return cmd
}
