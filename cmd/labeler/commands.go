package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/labeler/internal/config"
)

// --- label ---

var labelCmd = &cobra.Command{
	Use:   "label <observation...>",
	Short: "Label a single observation through the running server",
	Long: `Label a single observation through the running server.

Examples:
  labeler label "se realiza cambio de turbo y relleno de aceite de motor 10 litros"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		observation := strings.Join(args, " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/label", map[string]string{"observation": observation})
		if err != nil {
			return err
		}

		var result any
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

// --- normalize ---

var normalizeCmd = &cobra.Command{
	Use:   "normalize <field> <value>",
	Short: "Canonicalize a value with the configured reference tables",
	Long: `Canonicalize a value the way stored records are canonicalized.

Fields: scheduled_type, detention_type, job_type, system, subsystem, piece.
Use "text" for plain normalization without an alias table.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		cat, err := loadCatalog(cfg)
		if err != nil {
			return err
		}

		c := cat.Canonicalizer()
		field, value := args[0], args[1]
		if field == "text" {
			fmt.Fprintln(cmd.OutOrStdout(), c.Text(value))
			return nil
		}
		for _, f := range c.Fields() {
			if f == field {
				fmt.Fprintln(cmd.OutOrStdout(), c.Field(field, value))
				return nil
			}
		}
		return fmt.Errorf("unknown field %q (valid: text, %s)", field, strings.Join(c.Fields(), ", "))
	},
}

// --- batches ---

var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "Inspect stored batches",
}

var batchesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent batches",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/batches?limit=%d", limit))
		if err != nil {
			return err
		}

		var batches []struct {
			ID        string `json:"id"`
			Label     string `json:"label"`
			Status    string `json:"status"`
			RowCount  int    `json:"row_count"`
			CreatedAt string `json:"created_at"`
		}
		if err := decodeJSON(resp, &batches); err != nil {
			return err
		}

		if len(batches) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No batches found.")
			return nil
		}

		for _, b := range batches {
			id := b.ID
			if len(id) > 8 {
				id = id[:8]
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %-9s  %4d rows  %s\n",
				colorize(colorCyan, id),
				b.CreatedAt,
				b.Status,
				b.RowCount,
				b.Label,
			)
		}
		return nil
	},
}

var batchesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a batch, or its records with --records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("records")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/batches/" + url.PathEscape(args[0])
		if kind != "" {
			path += "/records?kind=" + url.QueryEscape(kind)
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var out any
		if err := decodeJSON(resp, &out); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

func init() {
	batchesListCmd.Flags().Int("limit", 20, "maximum number of batches to list")
	batchesShowCmd.Flags().String("records", "", "print records instead of the batch (simple, records or final)")
	batchesCmd.AddCommand(batchesListCmd)
	batchesCmd.AddCommand(batchesShowCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Valid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s", key)
		if key == "engine.api_key" || key == "server.token" {
			fmt.Fprintln(os.Stderr, "  (stored in the platform secret store)")
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
