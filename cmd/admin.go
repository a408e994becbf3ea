package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"lookupdesk/gateway"
	"lookupdesk/logger"
	"lookupdesk/models"

	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrator commands (requires 'lookupdesk login')",
}

var adminUploadCmd = &cobra.Command{
	Use:   "upload <file.xlsx>",
	Short: "Replace the active dataset with a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer f.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()
		res, err := client.UploadDataset(ctx, args[0], f)
		if err != nil {
			return adminError(cmd, client, err)
		}
		logger.Info("Uploaded '%s' with %d columns", args[0], len(res.Columns))
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s. Columns (%d):\n", res.Message, len(res.Columns))
		for _, c := range res.Columns {
			fmt.Fprintf(out, "  %s\n", c)
		}
		if !res.CurrentConfig.KeysConfigured() {
			fmt.Fprintln(out, "Key columns are not configured yet; run 'lookupdesk admin config set'.")
		}
		return nil
	},
}

var adminConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the lookup configuration",
}

var adminConfigGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the saved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		cfg, err := client.GetConfig(ctx)
		if err != nil {
			return adminError(cmd, client, err)
		}
		cols, err := client.Columns(ctx)
		if err != nil {
			return adminError(cmd, client, err)
		}
		return writeConfig(cmd.OutOrStdout(), cols, cfg)
	},
}

// writeConfig prints the configuration with every dataset column marked.
func writeConfig(out io.Writer, columns []string, cfg *models.Configuration) error {
	if cfg == nil {
		fmt.Fprintln(out, "No configuration saved yet.")
		cfg = &models.Configuration{}
	} else {
		fmt.Fprintf(out, "DNI column:  %s\nDate column: %s\n", cfg.DNIColumn, cfg.DateColumn)
	}
	if len(columns) == 0 {
		_, err := fmt.Fprintln(out, "No dataset uploaded.")
		return err
	}
	draft := gateway.NewConfigDraft(columns, cfg)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tVISIBLE\tROLE")
	for _, c := range columns {
		visible := "no"
		if draft.IsVisible(c) {
			visible = "yes"
		}
		role := ""
		switch c {
		case cfg.DNIColumn:
			role = "dni"
		case cfg.DateColumn:
			role = "entry date"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", c, visible, role)
	}
	return w.Flush()
}

var (
	cfgDNIColumn    string
	cfgDateColumn   string
	cfgColumns      []string
	cfgAllMatching  string
	cfgNoneMatching string
)

var adminConfigSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change key columns and visible columns",
	Long: `Starts from the saved configuration and applies, in order: the key
columns, --columns (exact visible set), --all-matching (show every column
whose name contains the text) and --none-matching (hide them).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		cols, err := client.Columns(ctx)
		if err != nil {
			return adminError(cmd, client, err)
		}
		current, err := client.GetConfig(ctx)
		if err != nil {
			return adminError(cmd, client, err)
		}

		draft := gateway.NewConfigDraft(cols, current)
		applyConfigFlags(cmd, draft)

		cfg := draft.Configuration()
		if err := client.SaveConfig(ctx, cfg); err != nil {
			return adminError(cmd, client, err)
		}
		logger.Info("Saved configuration: dni=%q date=%q visible=%d", cfg.DNIColumn, cfg.DateColumn, len(cfg.VisibleColumns))
		return writeConfig(cmd.OutOrStdout(), cols, &cfg)
	},
}

func applyConfigFlags(cmd *cobra.Command, draft *gateway.ConfigDraft) {
	flags := cmd.Flags()
	if flags.Changed("dni-column") {
		draft.DNIColumn = strings.TrimSpace(cfgDNIColumn)
	}
	if flags.Changed("date-column") {
		draft.DateColumn = strings.TrimSpace(cfgDateColumn)
	}
	if flags.Changed("columns") {
		draft.ToggleAll(false, "")
		for _, c := range cfgColumns {
			if c = strings.TrimSpace(c); c != "" && !draft.IsVisible(c) {
				draft.ToggleColumn(c)
			}
		}
	}
	if flags.Changed("all-matching") {
		draft.ToggleAll(true, cfgAllMatching)
	}
	if flags.Changed("none-matching") {
		draft.ToggleAll(false, cfgNoneMatching)
	}
}

var adminSuggestCmd = &cobra.Command{
	Use:   "suggest <fragment>",
	Short: "List identifiers containing a fragment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		ids, err := client.SuggestIdentifiers(ctx, args[0])
		if err != nil {
			return adminError(cmd, client, err)
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var adminDetailJSON bool

var adminDetailCmd = &cobra.Command{
	Use:   "detail <dni>",
	Short: "Show the full record for an identifier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		rec, err := client.GetUserDetail(ctx, args[0])
		if err != nil {
			return adminError(cmd, client, err)
		}
		return writeRecord(cmd.OutOrStdout(), rec, adminDetailJSON)
	},
}

func writeRecord(out io.Writer, rec models.Record, asJSON bool) error {
	if rec.Len() == 0 {
		_, err := fmt.Fprintln(out, "No dataset loaded.")
		return err
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, k := range rec.Keys() {
		fmt.Fprintf(w, "%s:\t%s\n", k, rec.Get(k).Format(models.DetailDateLayout, "-"))
	}
	return w.Flush()
}

func init() {
	adminConfigSetCmd.Flags().StringVar(&cfgDNIColumn, "dni-column", "", "column holding the document number")
	adminConfigSetCmd.Flags().StringVar(&cfgDateColumn, "date-column", "", "column holding the entry date")
	adminConfigSetCmd.Flags().StringSliceVar(&cfgColumns, "columns", nil, "exact comma-separated list of visible columns")
	adminConfigSetCmd.Flags().StringVar(&cfgAllMatching, "all-matching", "", "show every column whose name contains this text (empty for all)")
	adminConfigSetCmd.Flags().StringVar(&cfgNoneMatching, "none-matching", "", "hide every column whose name contains this text (empty for all)")
	adminDetailCmd.Flags().BoolVar(&adminDetailJSON, "json", false, "print the record as JSON")

	adminConfigCmd.AddCommand(adminConfigGetCmd, adminConfigSetCmd)
	adminCmd.AddCommand(adminUploadCmd, adminConfigCmd, adminSuggestCmd, adminDetailCmd)
	rootCmd.AddCommand(adminCmd)
}
