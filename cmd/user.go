package cmd

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"lookupdesk/database"
	"lookupdesk/logger"
	"lookupdesk/models"

	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:         "user",
	Short:       "Manage accounts directly in the server database",
	Annotations: map[string]string{needsDBAnnotation: "true"},
}

var promoteRole string

var userPromoteCmd = &cobra.Command{
	Use:   "promote <username>",
	Short: "Change an account's role (default ADMIN)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role := strings.ToUpper(strings.TrimSpace(promoteRole))
		if role != models.RoleAdmin && role != models.RoleUser {
			return fmt.Errorf("invalid role %q: must be %s or %s", promoteRole, models.RoleAdmin, models.RoleUser)
		}
		err := database.SetUserRole(args[0], role)
		if errors.Is(err, database.ErrUserNotFound) {
			return fmt.Errorf("user '%s' not found", args[0])
		}
		if err != nil {
			logger.Error("Failed to set role for '%s': %v", args[0], err)
			return err
		}
		logger.Info("Set role of '%s' to %s", args[0], role)
		fmt.Fprintf(cmd.OutOrStdout(), "User '%s' now has role %s.\n", args[0], role)
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts and their roles",
	RunE: func(cmd *cobra.Command, args []string) error {
		users, err := database.ListUsers()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tROLE\tCREATED")
		for _, u := range users {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.Username, u.Role, u.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

func init() {
	userPromoteCmd.Flags().StringVar(&promoteRole, "role", models.RoleAdmin, "role to grant: ADMIN or USER")
	userCmd.AddCommand(userPromoteCmd, userListCmd)
	rootCmd.AddCommand(userCmd)
}
