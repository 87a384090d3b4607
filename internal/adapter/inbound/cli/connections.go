package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/i2y/orchestrate/internal/domain"
	"github.com/i2y/orchestrate/internal/usecase"
)

func (a *app) connectionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connections",
		Short: "Manage connections",
	}
	application := &cobra.Command{
		Use:   "application",
		Short: "Manage application connections",
	}
	application.AddCommand(
		a.connectionsCreateCommand(),
		a.connectionsRemoveCommand(),
		a.connectionsListCommand(),
	)
	cmd.AddCommand(application)
	return cmd
}

// credentialFlags maps a flag name to the credential field it sets.
var credentialFlags = map[string]string{
	"username":       "username",
	"password":       "password",
	"token":          "token",
	"api-key":        "api_key",
	"client-id":      "client_id",
	"client-secret":  "client_secret",
	"well-known-url": "well_known_url",
}

func (a *app) connectionsCreateCommand() *cobra.Command {
	var (
		appID    string
		connType string
		shared   bool
		entries  []string
		values   = make(map[string]*string, len(credentialFlags))
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an application connection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := domain.ParseConnectionType(connType)
			if err != nil {
				return err
			}
			if len(entries) > 0 && t != domain.ConnectionKeyValue {
				return &domain.ParameterError{Message: "--entries is only valid for key_value connections"}
			}
			fields, err := parseEntries(entries)
			if err != nil {
				return err
			}
			for flag, field := range credentialFlags {
				if cmd.Flags().Changed(flag) {
					fields[field] = *values[flag]
				}
			}
			id, err := a.deps.Connections.Create(cmd.Context(), usecase.CreateConnectionParams{
				AppID:  appID,
				Type:   t,
				Shared: shared,
				Fields: fields,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Connection '%s' created (id: %s)\n", appID, id)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&appID, "app-id", "a", "", "app id of the connection")
	fl.StringVarP(&connType, "type", "t", "", "basic, bearer, api_key, key_value or an oauth_auth_*_flow")
	fl.BoolVar(&shared, "shared", false, "share the credentials between users")
	fl.StringArrayVarP(&entries, "entries", "e", nil, "key=value credential of a key_value connection (repeatable)")
	for flag := range credentialFlags {
		values[flag] = fl.String(flag, "", "credential field "+credentialFlags[flag])
	}
	_ = cmd.MarkFlagRequired("app-id")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func (a *app) connectionsRemoveCommand() *cobra.Command {
	var appID string
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove an application connection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.deps.Connections.Remove(cmd.Context(), appID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Connection '%s' removed\n", appID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&appID, "app-id", "a", "", "app id of the connection")
	_ = cmd.MarkFlagRequired("app-id")
	return cmd
}

func (a *app) connectionsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List application connections",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conns, err := a.deps.Connections.List(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(conns))
			for _, c := range conns {
				rows = append(rows, []string{c.AppID, string(c.Type()), c.ConnectionID})
			}
			renderTable(cmd.OutOrStdout(), []string{"APP ID", "TYPE", "CONNECTION ID"}, rows)
			return nil
		},
	}
}
