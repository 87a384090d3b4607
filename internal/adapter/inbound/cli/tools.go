package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/i2y/orchestrate/internal/adapter/inbound/mcpserver"
	"github.com/i2y/orchestrate/internal/domain"
	"github.com/i2y/orchestrate/internal/usecase"
)

const (
	toolKindPython  = "python"
	toolKindOpenAPI = "openapi"
	toolKindSkill   = "skill"
)

func (a *app) toolsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Import, invoke and manage tools",
	}
	cmd.AddCommand(
		a.toolsImportCommand(),
		a.listCommand("List tools", usecase.StoreTools),
		a.removeCommand("Remove a tool by name", usecase.StoreTools),
		a.toolsInvokeCommand(),
		a.toolsServeCommand(),
	)
	return cmd
}

type toolsImportFlags struct {
	kind             string
	file             string
	appIDs           []string
	requirementsFile string
	permission       string
	name             string
	description      string
	skillsetID       string
	skillID          string
	operationPath    string
	httpMethod       string
}

// validate rejects flag combinations the kind does not accept.
func (f *toolsImportFlags) validate() error {
	switch f.kind {
	case toolKindPython, toolKindOpenAPI:
		if f.file == "" {
			return &domain.ParameterError{Message: fmt.Sprintf("--file is required for %s tools", f.kind)}
		}
		if f.kind == toolKindOpenAPI {
			if len(f.appIDs) > 1 {
				return &domain.ParameterError{Message: "openapi tools accept a single --app-id"}
			}
			if f.requirementsFile != "" {
				return &domain.ParameterError{Message: "--requirements-file is only valid for python tools"}
			}
		}
	case toolKindSkill:
		if len(f.appIDs) > 0 {
			return &domain.ParameterError{Message: "--app-id is only valid for openapi and python tools"}
		}
		if f.skillsetID == "" || f.skillID == "" || f.operationPath == "" {
			return &domain.ParameterError{Message: "skill tools require --skillset-id, --skill-id and --skill-operation-path"}
		}
	default:
		return &domain.ParameterError{Message: fmt.Sprintf("unsupported tool kind %q, expected python, openapi or skill", f.kind)}
	}
	return nil
}

func (a *app) toolsImportCommand() *cobra.Command {
	var f toolsImportFlags
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import tools from a python module, an OpenAPI document or a skill",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.validate(); err != nil {
				return err
			}
			permission, err := domain.ParsePermission(f.permission)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			switch f.kind {
			case toolKindPython:
				results, err := a.deps.ImportTools.ImportPython(ctx, usecase.ImportPythonParams{
					File:             f.file,
					RequirementsFile: f.requirementsFile,
					AppIDs:           f.appIDs,
				})
				printResults(out, results...)
				return err
			case toolKindOpenAPI:
				var appID string
				if len(f.appIDs) == 1 {
					appID = f.appIDs[0]
				}
				results, err := a.deps.ImportTools.ImportOpenAPI(ctx, usecase.ImportOpenAPIParams{
					Source:     f.file,
					AppID:      appID,
					Permission: permission,
				})
				printResults(out, results...)
				return err
			default:
				res, err := a.deps.ImportTools.ImportSkill(ctx, usecase.ImportSkillParams{
					Name:          f.name,
					Description:   f.description,
					SkillsetID:    f.skillsetID,
					SkillID:       f.skillID,
					OperationPath: f.operationPath,
					HTTPMethod:    f.httpMethod,
					Permission:    permission,
				})
				if err != nil {
					return err
				}
				printResults(out, *res)
				return nil
			}
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.kind, "kind", "k", "", "tool kind: python, openapi or skill")
	fl.StringVarP(&f.file, "file", "f", "", "python module, or OpenAPI document path, URL or github:// URL")
	fl.StringArrayVarP(&f.appIDs, "app-id", "a", nil, "connection app id, as runtime=local to remap (repeatable)")
	fl.StringVarP(&f.requirementsFile, "requirements-file", "r", "", "requirements.txt packaged with a python tool")
	fl.StringVar(&f.permission, "permission", "", "permission of the imported tools")
	fl.StringVarP(&f.name, "name", "n", "", "skill tool name (defaults to the skill id)")
	fl.StringVarP(&f.description, "description", "d", "", "skill tool description")
	fl.StringVar(&f.skillsetID, "skillset-id", "", "skillset of a skill tool")
	fl.StringVar(&f.skillID, "skill-id", "", "skill of a skill tool")
	fl.StringVar(&f.operationPath, "skill-operation-path", "", "operation path of a skill tool")
	fl.StringVar(&f.httpMethod, "skill-http-method", "", "http method of a skill tool")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

func (a *app) toolsInvokeCommand() *cobra.Command {
	var (
		file  string
		opts  usecase.InvokeOptions
		pairs []string
	)
	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Run a tool spec from this machine",
		RunE: func(cmd *cobra.Command, _ []string) error {
			args, err := parseArgs(pairs)
			if err != nil {
				return err
			}
			result, err := a.deps.InvokeTool.Execute(cmd.Context(), file, opts, args)
			if err != nil {
				return err
			}
			if text, ok := result.(string); ok {
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			}
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&file, "file", "f", "", "tool spec file (yaml or json)")
	fl.StringVar(&opts.Server, "server", "", "server that replaces the one in the binding")
	fl.StringVarP(&opts.AppID, "app-id", "a", "", "connection whose credentials are read from the environment")
	fl.StringArrayVar(&pairs, "arg", nil, "tool argument as key=value, JSON values keep their type (repeatable)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (a *app) toolsServeCommand() *cobra.Command {
	var (
		files     []string
		opts      usecase.InvokeOptions
		transport string
		listen    string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose tool specs as an MCP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if transport != "stdio" && transport != "sse" {
				return &domain.ParameterError{Message: fmt.Sprintf("invalid transport %q, expected stdio or sse", transport)}
			}
			ctx := cmd.Context()
			catalog := usecase.NewServeToolsUseCase(a.deps.InvokeTool, opts, a.deps.Logger)
			if err := catalog.Load(files); err != nil {
				return err
			}
			srv := mcpserver.New("orchestrate", a.versionOrDev(), catalog, a.deps.Logger)
			if _, err := srv.Register(ctx); err != nil {
				return err
			}
			if transport == "stdio" {
				return srv.ServeStdio(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
			}
			if listen == "" {
				listen = a.deps.ListenAddr
			}
			return srv.ServeSSE(ctx, listen, a.deps.ShutdownTimeout)
		},
	}
	fl := cmd.Flags()
	fl.StringArrayVarP(&files, "file", "f", nil, "tool spec file (repeatable)")
	fl.StringVar(&opts.Server, "server", "", "server that replaces the one in every binding")
	fl.StringVarP(&opts.AppID, "app-id", "a", "", "connection whose credentials are read from the environment")
	fl.StringVar(&transport, "transport", "stdio", "transport mode: stdio or sse")
	fl.StringVar(&listen, "listen", "", "address the sse transport listens on")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (a *app) versionOrDev() string {
	if a.version == "" {
		return "dev"
	}
	return a.version
}

// listCommand lists one or more stores, optionally filtered by a name glob.
func (a *app) listCommand(short string, kinds ...usecase.StoreKind) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			drafts, err := a.deps.List.List(cmd.Context(), filter, kinds...)
			if err != nil {
				return err
			}
			printDrafts(cmd.OutOrStdout(), drafts)
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "only list names matching this glob")
	return cmd
}

// removeCommand removes a record of a single store by name.
func (a *app) removeCommand(short string, kind usecase.StoreKind) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "remove",
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.remove(cmd, kind, name)
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "name of the record to remove")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (a *app) remove(cmd *cobra.Command, kind usecase.StoreKind, name string) error {
	removed, err := a.deps.Remove.Remove(cmd.Context(), kind, name)
	if err != nil {
		return err
	}
	if removed {
		fmt.Fprintf(cmd.OutOrStdout(), "%s '%s' removed\n", entityLabel(kind), name)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "No %s named '%s' found\n", kind, name)
	}
	return nil
}
