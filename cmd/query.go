package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"lookupdesk/models"
	"lookupdesk/tableview"
	"lookupdesk/tui"

	"github.com/spf13/cobra"
)

var (
	queryDNI   string
	queryDate  string
	queryPlain bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Look up employee records by DNI and entry date",
	Long: `Searches the public lookup. Without --plain an interactive table opens
where rows can be filtered and sorted and columns shown or hidden.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		dni, date := strings.TrimSpace(queryDNI), strings.TrimSpace(queryDate)
		if !queryPlain {
			return tui.Run(client, dni, date, clientTimeout())
		}
		if dni == "" || date == "" {
			return fmt.Errorf("--dni and --date are required with --plain")
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()
		rs, err := client.SearchUser(ctx, dni, date)
		if err != nil {
			return userError(cmd, err)
		}
		return writeTable(cmd.OutOrStdout(), tableview.NewWithResult(rs).Derive())
	},
}

// writeTable prints a derived display as aligned columns.
func writeTable(out io.Writer, d tableview.Display) error {
	switch d.Status {
	case tableview.StatusNoQuery, tableview.StatusEmpty:
		return nil
	case tableview.StatusNoMatches:
		_, err := fmt.Fprintln(out, "No matching rows.")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(d.Columns, "\t"))
	for _, row := range d.Rows {
		fmt.Fprintln(w, strings.Join(cellStrings(row), "\t"))
	}
	return w.Flush()
}

func cellStrings(vals []models.Value) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = v.String()
	}
	return out
}

func init() {
	queryCmd.Flags().StringVar(&queryDNI, "dni", "", "document number to look up")
	queryCmd.Flags().StringVar(&queryDate, "date", "", "entry date, dd/mm/yyyy or yyyy-mm-dd")
	queryCmd.Flags().BoolVar(&queryPlain, "plain", false, "print a plain table instead of opening the interactive view")
	rootCmd.AddCommand(queryCmd)
}
