package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/i2y/orchestrate/configs"
)

// EnvironmentStore edits the named backends of the config file.
type EnvironmentStore interface {
	Path() string
	List() ([]configs.NamedEnvironment, error)
	Add(name, url string, activate bool) (bool, error)
	Remove(name string) error
	Activate(name, apiKey string) error
}

// localOnly marks commands that only touch local files and need no Deps.
const localOnly = "orchestrate/local-only"

func needsDeps(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[localOnly] == "true" {
			return false
		}
	}
	return true
}

func (a *app) environmentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "environment",
		Aliases:     []string{"env"},
		Short:       "Manage the backends in the config file",
		Annotations: map[string]string{localOnly: "true"},
	}
	cmd.AddCommand(
		a.environmentsAddCommand(),
		a.environmentsRemoveCommand(),
		a.environmentsListCommand(),
		a.environmentsActivateCommand(),
	)
	return cmd
}

func (a *app) environmentsAddCommand() *cobra.Command {
	var (
		name     string
		url      string
		activate bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update an environment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			updated, err := a.envs.Add(name, url, activate)
			if err != nil {
				return err
			}
			action := "added"
			if updated {
				action = "updated"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Environment '%s' %s in %s\n", name, action, a.envs.Path())
			if activate {
				fmt.Fprintf(cmd.OutOrStdout(), "Environment '%s' is now active\n", name)
			}
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&name, "name", "n", "", "name of the environment")
	fl.StringVarP(&url, "url", "u", "", "base URL of the backend")
	fl.BoolVarP(&activate, "activate", "a", false, "make the environment active")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func (a *app) environmentsRemoveCommand() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove an environment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.envs.Remove(name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Environment '%s' removed\n", name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "name of the environment")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (a *app) environmentsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List environments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			envs, err := a.envs.List()
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(envs))
			for _, e := range envs {
				active := ""
				if e.Active {
					active = "*"
				}
				rows = append(rows, []string{e.Name, e.URL, active})
			}
			renderTable(cmd.OutOrStdout(), []string{"NAME", "URL", "ACTIVE"}, rows)
			return nil
		},
	}
}

func (a *app) environmentsActivateCommand() *cobra.Command {
	var apiKey string
	cmd := &cobra.Command{
		Use:   "activate NAME",
		Short: "Make an environment active, optionally storing its API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.envs.Activate(args[0], apiKey); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Environment '%s' is now active\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&apiKey, "apikey", "a", "", "API key to store with the environment")
	return cmd
}
