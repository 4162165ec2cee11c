package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server and alerting summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if getOutputFormat() != "table" {
				summary := map[string]interface{}{}
				if err := apiClient.Health(ctx); err == nil {
					summary["server"] = "ok"
				} else {
					summary["server"] = err.Error()
				}
				if stats, err := apiClient.Alerts().Statistics(ctx); err == nil {
					summary["alerts"] = stats
				}
				if rules, err := apiClient.Rules().List(ctx, nil); err == nil {
					summary["rules"] = len(rules)
				}
				return printOutput(summary)
			}

			fmt.Println("Peerwatch Status")
			fmt.Println(strings.Repeat("=", 40))

			if err := apiClient.Health(ctx); err != nil {
				fmt.Printf("  Server:    (error: %v)\n", err)
				return nil
			}
			fmt.Println("  Server:    ok")

			if rules, err := apiClient.Rules().List(ctx, nil); err != nil {
				fmt.Printf("  Rules:     (error: %v)\n", err)
			} else {
				enabled := 0
				for _, r := range rules {
					if r.IsEnabled {
						enabled++
					}
				}
				fmt.Printf("  Rules:     %d enabled (%d total)\n", enabled, len(rules))
			}

			if stats, err := apiClient.Alerts().Statistics(ctx); err != nil {
				fmt.Printf("  Alerts:    (error: %v)\n", err)
			} else {
				fmt.Printf("  Alerts:    %d open", stats.OpenAlerts)
				if high := stats.AlertsBySeverity["high"] + stats.AlertsBySeverity["critical"]; high > 0 {
					fmt.Printf(" (%d high severity)", high)
				}
				fmt.Println()
			}

			if channels, err := apiClient.Channels().List(ctx); err == nil {
				enabled := 0
				for _, c := range channels {
					if c.IsEnabled {
						enabled++
					}
				}
				fmt.Printf("  Channels:  %d enabled (%d total)\n", enabled, len(channels))
			}

			return nil
		},
	}
}
