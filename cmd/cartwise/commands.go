package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cartwise/cartwise/internal/config"
	"github.com/cartwise/cartwise/internal/eval"
)

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Ask the shopping assistant",
	Long: `Ask the shopping assistant.

Examples:
  cartwise ask "any deals on oat milk this week"
  cartwise ask --user alice "find gluten-free bread near me"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		message := strings.Join(args, " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/v1/chat", map[string]any{
			"user_id": user,
			"message": message,
		})
		if err != nil {
			return err
		}

		var result struct {
			Response     string   `json:"response"`
			RoutedAgents []string `json:"routed_agents"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result.Response)
		if len(result.RoutedAgents) > 0 {
			fmt.Fprintf(os.Stderr, "%s %s\n",
				colorize(colorCyan, "agents:"),
				strings.Join(result.RoutedAgents, ", "),
			)
		}
		return nil
	},
}

// --- context ---

var contextCmd = &cobra.Command{
	Use:   "context [query]",
	Short: "Show the learned preference context for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		query := strings.Join(args, " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/v1/users/%s/context?query=%s", url.PathEscape(user), url.QueryEscape(query))
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var result struct {
			Context  string `json:"context"`
			Insights []struct {
				Kind        string  `json:"kind"`
				Confidence  float64 `json:"confidence"`
				Description string  `json:"description"`
			} `json:"insights"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if result.Context == "" {
			fmt.Println("No learned preferences yet.")
			return nil
		}
		fmt.Println(result.Context)
		for _, in := range result.Insights {
			fmt.Printf("%s %s (%.2f)\n", colorize(colorBold, in.Kind+":"), in.Description, in.Confidence)
		}
		return nil
	},
}

// --- user ---

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage static user configuration",
}

var userShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a user's static configuration as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/v1/users/"+url.PathEscape(user)+"/config")
		if err != nil {
			return err
		}

		var cfg any
		if err := decodeJSON(resp, &cfg); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	},
}

var userSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a static user configuration field",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		key, value := args[0], args[1]

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.put(cmd.Context(), "/v1/users/"+url.PathEscape(user)+"/config", map[string]string{key: value})
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Set %s = %s for %s", key, value, user)
		return nil
	},
}

func init() {
	userCmd.AddCommand(userShowCmd)
	userCmd.AddCommand(userSetCmd)
}

// --- ingest ---

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Queue receipts and flyers for ingestion",
}

var ingestReceiptCmd = &cobra.Command{
	Use:   "receipt <path>",
	Short: "Queue a PDF receipt for preference learning",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/v1/receipts", map[string]string{
			"user_id": user,
			"path":    args[0],
		})
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Queued receipt job %s", result["id"])
		return nil
	},
}

var ingestFlyerCmd = &cobra.Command{
	Use:   "flyer <path>",
	Short: "Queue an HTML flyer for the promotion catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _ := cmd.Flags().GetString("store")
		if store == "" {
			return fmt.Errorf("--store is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/v1/flyers", map[string]string{
			"store": store,
			"path":  args[0],
		})
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Queued flyer job %s", result["id"])
		return nil
	},
}

func init() {
	ingestFlyerCmd.Flags().String("store", "", "store the flyer belongs to")
	ingestCmd.AddCommand(ingestReceiptCmd)
	ingestCmd.AddCommand(ingestFlyerCmd)
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
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

// --- eval ---

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Run the built-in learning evaluation scenarios",
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := eval.Run(context.Background(), eval.Scenarios())
		if err != nil {
			return err
		}

		fmt.Print(report.Summary())
		if failed := len(report.Results) - report.PassedCount(); failed > 0 {
			return fmt.Errorf("%d scenarios failed", failed)
		}
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{askCmd, contextCmd, userShowCmd, userSetCmd, ingestReceiptCmd} {
		cmd.Flags().String("user", "default", "user id")
	}
}
