// Package cli implements the orchestrate command tree.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/i2y/orchestrate/internal/usecase"
)

// Deps are the use cases the commands run. They are built once per
// invocation by a Builder, after global flags are parsed.
type Deps struct {
	ImportTools     *usecase.ImportToolsUseCase
	ImportAgents    *usecase.ImportAgentsUseCase
	ImportToolkit   *usecase.ImportToolkitUseCase
	ImportKBs       *usecase.ImportKnowledgeBasesUseCase
	Remove          *usecase.RemoveUseCase
	List            *usecase.ListUseCase
	Connections     *usecase.ConnectionsUseCase
	InvokeTool      *usecase.InvokeToolUseCase
	ListenAddr      string
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

// Options are the global flags that shape the dependency graph.
type Options struct {
	DryRun bool
}

// Builder wires Deps for the given options.
type Builder func(opts Options) (*Deps, error)

type app struct {
	build   Builder
	envs    EnvironmentStore
	opts    Options
	deps    *Deps
	version string
}

// NewRootCommand returns the root command. Errors are returned from
// Execute rather than printed, so the caller decides how to report them.
func NewRootCommand(version string, build Builder, envs EnvironmentStore) *cobra.Command {
	a := &app{build: build, envs: envs, version: version}

	root := &cobra.Command{
		Use:           "orchestrate",
		Short:         "Author, resolve and publish agents, tools and knowledge bases",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !needsDeps(cmd) {
				return nil
			}
			deps, err := a.build(a.opts)
			if err != nil {
				return fmt.Errorf("failed to initialize: %w", err)
			}
			a.deps = deps
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&a.opts.DryRun, "dry-run", false, "publish to an in-memory backend instead of the configured one")

	root.AddCommand(
		a.toolsCommand(),
		a.agentsCommand(),
		a.toolkitsCommand(),
		a.knowledgeBasesCommand(),
		a.connectionsCommand(),
		a.environmentsCommand(),
	)
	return root
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func renderTable(out io.Writer, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(out, t.Render())
}

func printDrafts(out io.Writer, drafts []usecase.Draft) {
	rows := make([][]string, 0, len(drafts))
	for _, d := range drafts {
		rows = append(rows, []string{d.Name, string(d.Kind), d.ID, d.Description})
	}
	renderTable(out, []string{"NAME", "KIND", "ID", "DESCRIPTION"}, rows)
}

func printResults(out io.Writer, results ...usecase.PublishResult) {
	for _, r := range results {
		fmt.Fprintf(out, "%s '%s' %s (id: %s)\n", entityLabel(r.Kind), r.Name, r.Action, r.ID)
	}
}

func entityLabel(kind usecase.StoreKind) string {
	switch kind {
	case usecase.StoreTools:
		return "Tool"
	case usecase.StoreToolkits:
		return "Toolkit"
	case usecase.StoreKnowledgeBases:
		return "Knowledge base"
	}
	return "Agent"
}
