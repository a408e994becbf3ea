package cmd

import (
	"fmt"
	"lookupdesk/logger"

	"github.com/spf13/cobra"
)

var (
	authUsername string
	authPassword string
)

func credentials(cmd *cobra.Command) (string, string, error) {
	if authUsername == "" {
		return "", "", fmt.Errorf("--username is required")
	}
	if authPassword != "" {
		return authUsername, authPassword, nil
	}
	password, err := readPassword(cmd.InOrStdin(), cmd.OutOrStdout(), "Password: ")
	return authUsername, password, err
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account (an administrator must grant the ADMIN role)",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, password, err := credentials(cmd)
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		if err := client.Register(ctx, username, password); err != nil {
			return userError(cmd, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "User '%s' registered. Ask an administrator to activate it.\n", username)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in as an administrator and save the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, password, err := credentials(cmd)
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		login, err := client.Authenticate(ctx, username, password)
		if err != nil {
			return userError(cmd, err)
		}
		if err := client.Session().Save(getStateFilePath()); err != nil {
			logger.Error("Failed to save session: %v", err)
			return err
		}
		logger.Info("Logged in as '%s' (%s)", login.Username, login.Role)
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s.\n", login.Username)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved session",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		client.Session().Logout()
		if err := client.Session().Save(getStateFilePath()); err != nil {
			logger.Error("Failed to clear session: %v", err)
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{registerCmd, loginCmd} {
		c.Flags().StringVarP(&authUsername, "username", "u", "", "account username")
		c.Flags().StringVar(&authPassword, "password", "", "account password (prompted when omitted)")
	}
	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd)
}
