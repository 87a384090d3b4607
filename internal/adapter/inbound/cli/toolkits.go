package cli

import (
	"github.com/spf13/cobra"

	"github.com/i2y/orchestrate/internal/domain"
	"github.com/i2y/orchestrate/internal/usecase"
)

func (a *app) toolkitsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toolkits",
		Short: "Register MCP servers as toolkits",
	}
	cmd.AddCommand(
		a.toolkitsImportCommand(),
		a.listCommand("List toolkits", usecase.StoreToolkits),
		a.removeCommand("Remove a toolkit by name", usecase.StoreToolkits),
	)
	return cmd
}

func (a *app) toolkitsImportCommand() *cobra.Command {
	var (
		kind string
		p    usecase.ImportToolkitParams
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Create a toolkit from an MCP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := domain.ParseToolkitKind(kind)
			if err != nil {
				return err
			}
			if p.Command != "" && p.URL != "" {
				return &domain.ParameterError{Message: "--command and --url are mutually exclusive"}
			}
			if p.Command == "" && p.URL == "" {
				return &domain.ParameterError{Message: "one of --command or --url is required"}
			}
			p.Kind = k
			res, err := a.deps.ImportToolkit.Import(cmd.Context(), p)
			if err != nil {
				return err
			}
			printResults(cmd.OutOrStdout(), *res)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&kind, "kind", "k", string(domain.ToolkitKindMCP), "toolkit kind, only mcp is supported")
	fl.StringVarP(&p.Name, "name", "n", "", "toolkit name")
	fl.StringVarP(&p.Description, "description", "d", "", "toolkit description")
	fl.StringVar(&p.PackageRoot, "package-root", "", "directory or zip uploaded as the server's source")
	fl.StringVar(&p.Command, "command", "", `command that starts the server, as a line or a JSON list such as '["npx", "-y", "server"]'`)
	fl.StringVar(&p.URL, "url", "", "SSE endpoint of a running server")
	fl.StringSliceVar(&p.Tools, "tools", nil, "tools to include, all listed tools when empty")
	fl.StringArrayVarP(&p.AppIDs, "app-id", "a", nil, "key_value connection, as runtime=local to remap (repeatable)")
	fl.StringArrayVarP(&p.Env, "env", "e", nil, "KEY=VALUE passed to the server when listing tools (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}
