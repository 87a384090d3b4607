package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/i2y/orchestrate/internal/domain"
	"github.com/i2y/orchestrate/internal/usecase"
)

func (a *app) agentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Import, create and manage agents",
	}
	cmd.AddCommand(
		a.agentsImportCommand(),
		a.agentsCreateCommand(),
		a.listCommand("List agents of every kind", usecase.StoreNativeAgents, usecase.StoreExternalAgents, usecase.StoreAssistantAgents),
		a.agentsRemoveCommand(),
	)
	return cmd
}

func (a *app) agentsImportCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Create or update an agent from a spec file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.deps.ImportAgents.Import(cmd.Context(), file)
			if err != nil {
				return err
			}
			printResults(cmd.OutOrStdout(), *res)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "agent spec file (yaml or json)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

type agentsCreateFlags struct {
	kind          string
	name          string
	description   string
	title         string
	tags          []string
	nickname      string
	appID         string
	llm           string
	style         string
	instructions  string
	collaborators []string
	tools         []string
	knowledgeBase []string
	apiURL        string
	authScheme    string
	provider      string
	apiVersion    string
	assistantID   string
	environmentID string
	crn           string
	instanceURL   string
	authType      string
	output        string
}

// agent builds the variant named by --kind from the flags.
func (f *agentsCreateFlags) agent() (domain.Agent, error) {
	kind, err := domain.ParseAgentKind(f.kind)
	if err != nil {
		return nil, err
	}
	base := domain.BaseAgent{Kind: kind, Name: f.name, Description: f.description}
	switch kind {
	case domain.AgentKindNative:
		return domain.NewNativeAgent(domain.NativeAgent{
			BaseAgent:     base,
			LLM:           f.llm,
			Style:         domain.AgentStyle(f.style),
			Instructions:  f.instructions,
			Collaborators: f.collaborators,
			Tools:         f.tools,
			KnowledgeBase: f.knowledgeBase,
		})
	case domain.AgentKindExternal:
		return domain.NewExternalAgent(domain.ExternalAgent{
			BaseAgent:  base,
			Title:      f.title,
			Tags:       f.tags,
			APIURL:     f.apiURL,
			AuthScheme: domain.ExternalAuthScheme(f.authScheme),
			Provider:   domain.AgentProvider(f.provider),
			Nickname:   f.nickname,
			AppID:      f.appID,
		})
	default:
		return domain.NewAssistantAgent(domain.AssistantAgent{
			BaseAgent: base,
			Title:     f.title,
			Tags:      f.tags,
			Nickname:  f.nickname,
			AppID:     f.appID,
			Config: domain.AssistantAgentConfig{
				APIVersion:    f.apiVersion,
				AssistantID:   f.assistantID,
				EnvironmentID: f.environmentID,
				CRN:           f.crn,
				InstanceURL:   f.instanceURL,
				AuthType:      domain.AssistantAuthType(f.authType),
			},
		})
	}
}

func (a *app) agentsCreateCommand() *cobra.Command {
	var f agentsCreateFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an agent from flags, optionally saving its spec",
		RunE: func(cmd *cobra.Command, _ []string) error {
			agent, err := f.agent()
			if err != nil {
				return err
			}
			res, err := a.deps.ImportAgents.CreateAgent(cmd.Context(), agent, f.output)
			if err != nil {
				return err
			}
			if f.output != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Spec written to %s\n", f.output)
			}
			printResults(cmd.OutOrStdout(), *res)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.kind, "kind", "k", "native", "agent kind: native, external or assistant")
	fl.StringVarP(&f.name, "name", "n", "", "agent name")
	fl.StringVarP(&f.description, "description", "d", "", "agent description")
	fl.StringVarP(&f.title, "title", "t", "", "display title (external, assistant)")
	fl.StringSliceVar(&f.tags, "tags", nil, "tags (external, assistant)")
	fl.StringVar(&f.nickname, "nickname", "", "nickname (external, assistant)")
	fl.StringVarP(&f.appID, "app-id", "a", "", "connection app id (external, assistant)")
	fl.StringVar(&f.llm, "llm", "", "model (native)")
	fl.StringVar(&f.style, "style", "", "agent style: default or react (native)")
	fl.StringVar(&f.instructions, "instructions", "", "instructions (native)")
	fl.StringSliceVar(&f.collaborators, "collaborators", nil, "collaborator agent names (native)")
	fl.StringSliceVar(&f.tools, "tools", nil, "tool names (native)")
	fl.StringSliceVar(&f.knowledgeBase, "knowledge-base", nil, "knowledge base names (native)")
	fl.StringVar(&f.apiURL, "api-url", "", "chat endpoint (external)")
	fl.StringVar(&f.authScheme, "auth-scheme", "", "BEARER_TOKEN, API_KEY or NONE (external)")
	fl.StringVar(&f.provider, "provider", "", "provider (external)")
	fl.StringVar(&f.apiVersion, "api-version", "", "API version (assistant)")
	fl.StringVar(&f.assistantID, "assistant-id", "", "assistant id (assistant)")
	fl.StringVar(&f.environmentID, "environment-id", "", "environment id (assistant)")
	fl.StringVar(&f.crn, "crn", "", "service CRN (assistant)")
	fl.StringVar(&f.instanceURL, "instance-url", "", "service instance URL (assistant)")
	fl.StringVar(&f.authType, "auth-type", "", "authentication type (assistant)")
	fl.StringVarP(&f.output, "output", "o", "", "write the spec to this yaml or json file")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (a *app) agentsRemoveCommand() *cobra.Command {
	var name, kind string
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove an agent by name and kind",
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := domain.ParseAgentKind(kind)
			if err != nil {
				return err
			}
			return a.remove(cmd, usecase.StoreKind(k), name)
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "agent name")
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "agent kind: native, external or assistant")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}
