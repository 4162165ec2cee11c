package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/peerwatch/peerwatch/pkg/client"
)

func newAlertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alert",
		Short: "Work through triggered alerts",
	}

	cmd.AddCommand(newAlertListCmd())
	cmd.AddCommand(newAlertGetCmd())
	cmd.AddCommand(newAlertAckCmd())
	cmd.AddCommand(newAlertResolveCmd())
	cmd.AddCommand(newAlertSuppressCmd())
	cmd.AddCommand(newAlertStatsCmd())
	cmd.AddCommand(newAlertNotificationsCmd())

	return cmd
}

func newAlertListCmd() *cobra.Command {
	var status, severity, ruleID string
	var page, pageSize int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := apiClient.Alerts().List(context.Background(), &client.AlertListOptions{
				ListOptions: client.ListOptions{Page: page, PageSize: pageSize},
				Status:      status,
				Severity:    severity,
				RuleID:      ruleID,
			})
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(result)
			}

			t := NewTable("ID", "SEVERITY", "STATUS", "TITLE", "SOURCE", "TRIGGERED")
			for _, a := range result.Data {
				t.AddRow(
					truncate(a.ID, 12),
					formatSeverity(a.Severity),
					formatStatus(a.Status),
					truncate(a.Title, 40),
					truncate(a.SourceID, 20),
					a.TriggeredAt.Local().Format("2006-01-02 15:04"),
				)
			}
			t.Render()
			fmt.Printf("\nPage %d of %d (%d alerts total)\n", result.Page, result.TotalPages, result.TotalItems)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (open, acknowledged, resolved, suppressed)")
	cmd.Flags().StringVar(&severity, "severity", "", "filter by severity")
	cmd.Flags().StringVar(&ruleID, "rule", "", "filter by rule ID")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "items per page")
	return cmd
}

func newAlertGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			alert, err := apiClient.Alerts().Get(context.Background(), args[0])
			if err != nil {
				return err
			}
			return printOutput(alert)
		},
	}
}

func newAlertAckCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "ack <id>",
		Short: "Acknowledge an open alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			alert, err := apiClient.Alerts().Acknowledge(context.Background(), args[0], message)
			if err != nil {
				return err
			}
			fmt.Printf("Alert %s acknowledged\n", alert.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "acknowledgement note")
	return cmd
}

func newAlertResolveCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "resolve <id>",
		Short: "Resolve an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			alert, err := apiClient.Alerts().Resolve(context.Background(), args[0], reason)
			if err != nil {
				return err
			}
			fmt.Printf("Alert %s resolved\n", alert.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&reason, "reason", "r", "", "resolution note")
	return cmd
}

func newAlertSuppressCmd() *cobra.Command {
	var duration time.Duration
	var reason string

	cmd := &cobra.Command{
		Use:   "suppress <id>",
		Short: "Mute an open alert for a while",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			alert, err := apiClient.Alerts().Suppress(context.Background(), args[0], client.SuppressAlertRequest{
				Until:  time.Now().Add(duration),
				Reason: reason,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Alert %s suppressed until %s\n", alert.ID, alert.SuppressedUntil.Local().Format(time.RFC822))
			return nil
		},
	}

	cmd.Flags().DurationVarP(&duration, "for", "f", time.Hour, "suppression duration, e.g. 30m, 2h")
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "suppression note")
	return cmd
}

func newAlertStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate alert counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := apiClient.Alerts().Statistics(context.Background())
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(stats)
			}

			fmt.Printf("Total:         %d\n", stats.TotalAlerts)
			fmt.Printf("Open:          %d\n", stats.OpenAlerts)
			fmt.Printf("Acknowledged:  %d\n", stats.AcknowledgedAlerts)
			fmt.Printf("Resolved:      %d\n", stats.ResolvedAlerts)
			fmt.Printf("Suppressed:    %d\n", stats.SuppressedAlerts)
			if len(stats.AlertsBySeverity) > 0 {
				fmt.Println("\nBy severity:")
				for severity, count := range stats.AlertsBySeverity {
					fmt.Printf("  %-10s %d\n", severity, count)
				}
			}
			if len(stats.AlertsByRuleType) > 0 {
				fmt.Println("\nBy rule type:")
				for ruleType, count := range stats.AlertsByRuleType {
					fmt.Printf("  %-16s %d\n", ruleType, count)
				}
			}
			return nil
		},
	}
}

func newAlertNotificationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notifications <id>",
		Short: "Show delivery records for an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			notifications, err := apiClient.Alerts().Notifications(context.Background(), args[0])
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(notifications)
			}

			t := NewTable("ID", "CHANNEL", "STATUS", "RETRIES", "NEXT RETRY", "ERROR")
			for _, n := range notifications {
				t.AddRow(
					truncate(n.ID, 12),
					n.ChannelType,
					formatStatus(n.Status),
					fmt.Sprintf("%d/%d", n.RetryCount, n.MaxRetries),
					formatTime(n.NextRetryAt),
					truncate(n.ErrorMessage, 40),
				)
			}
			t.Render()
			return nil
		},
	}
}
