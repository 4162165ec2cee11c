package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/peerwatch/peerwatch/pkg/client"
)

func newRuleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Manage alert rules",
	}

	cmd.AddCommand(newRuleListCmd())
	cmd.AddCommand(newRuleGetCmd())
	cmd.AddCommand(newRuleCreateCmd())
	cmd.AddCommand(newRuleDeleteCmd())
	cmd.AddCommand(newRuleEnableCmd())
	cmd.AddCommand(newRuleDisableCmd())
	cmd.AddCommand(newRuleTestCmd())
	cmd.AddCommand(newRuleEvaluateCmd())

	return cmd
}

func newRuleListCmd() *cobra.Command {
	var ruleType, severity string
	var enabledOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alert rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &client.RuleListOptions{
				RuleType: ruleType,
				Severity: severity,
			}
			if enabledOnly {
				enabled := true
				opts.Enabled = &enabled
			}

			rules, err := apiClient.Rules().List(context.Background(), opts)
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(rules)
			}

			t := NewTable("ID", "NAME", "TYPE", "SEVERITY", "ENABLED", "TRIGGERS", "LAST EVALUATED")
			for _, r := range rules {
				t.AddRow(
					truncate(r.ID, 12),
					truncate(r.Name, 30),
					r.RuleType,
					formatSeverity(r.Severity),
					formatBool(r.IsEnabled),
					strconv.FormatInt(r.TriggerCount, 10),
					formatTime(r.LastEvaluatedAt),
				)
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&ruleType, "type", "", "filter by rule type")
	cmd.Flags().StringVar(&severity, "severity", "", "filter by severity")
	cmd.Flags().BoolVar(&enabledOnly, "enabled", false, "show only enabled rules")
	return cmd
}

func newRuleGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := apiClient.Rules().Get(context.Background(), args[0])
			if err != nil {
				return err
			}
			return printOutput(rule)
		},
	}
}

func newRuleCreateCmd() *cobra.Command {
	var name, ruleType, severity, conditionsJSON string
	var channels []string
	var disabled bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an alert rule",
		RunE: func(cmd *cobra.Command, args []string) error {
			var conditions map[string]interface{}
			if conditionsJSON != "" {
				if err := json.Unmarshal([]byte(conditionsJSON), &conditions); err != nil {
					return fmt.Errorf("invalid conditions JSON: %w", err)
				}
			}

			enabled := !disabled
			rule, err := apiClient.Rules().Create(context.Background(), client.CreateRuleRequest{
				Name:                 name,
				RuleType:             ruleType,
				Severity:             severity,
				Conditions:           conditions,
				IsEnabled:            &enabled,
				NotificationChannels: channels,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Rule %s created (%s)\n", rule.Name, rule.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "rule name (required)")
	cmd.Flags().StringVar(&ruleType, "type", "", "rule type (required)")
	cmd.Flags().StringVar(&severity, "severity", "medium", "alert severity")
	cmd.Flags().StringVar(&conditionsJSON, "conditions", "", "conditions as JSON, e.g. '{\"thresholdMinutes\": 10}'")
	cmd.Flags().StringSliceVar(&channels, "channel", nil, "notification channel ID (repeatable)")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "create the rule disabled")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newRuleDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a rule and resolve its open alerts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient.Rules().Delete(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Println("Rule deleted")
			return nil
		},
	}
}

func newRuleEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <id>",
		Short: "Enable a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient.Rules().Enable(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Println("Rule enabled")
			return nil
		},
	}
}

func newRuleDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <id>",
		Short: "Disable a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient.Rules().Disable(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Println("Rule disabled")
			return nil
		},
	}
}

func newRuleEvaluateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate <id>",
		Short: "Run a rule immediately, persisting any triggered alerts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := apiClient.Rules().Evaluate(context.Background(), args[0])
			if err != nil {
				return err
			}
			if created == 0 {
				fmt.Println("Rule did not trigger")
				return nil
			}
			fmt.Printf("Rule triggered, %d alert(s) created\n", created)
			return nil
		},
	}
}

func newRuleTestCmd() *cobra.Command {
	var ruleType, severity, conditionsJSON string

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Dry-run a rule definition against the live network",
		RunE: func(cmd *cobra.Command, args []string) error {
			var conditions map[string]interface{}
			if conditionsJSON != "" {
				if err := json.Unmarshal([]byte(conditionsJSON), &conditions); err != nil {
					return fmt.Errorf("invalid conditions JSON: %w", err)
				}
			}

			result, err := apiClient.Rules().Test(context.Background(), client.TestRuleRequest{
				RuleType:   ruleType,
				Severity:   severity,
				Conditions: conditions,
			})
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(result)
			}

			if !result.Triggered {
				fmt.Println("Rule did not trigger")
				return nil
			}

			fmt.Printf("Rule triggered %d alert(s):\n", result.AlertCount)
			t := NewTable("SEVERITY", "TITLE", "SOURCE")
			for _, a := range result.Alerts {
				t.AddRow(formatSeverity(a.Severity), truncate(a.Title, 50), a.SourceID)
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&ruleType, "type", "", "rule type (required)")
	cmd.Flags().StringVar(&severity, "severity", "medium", "alert severity")
	cmd.Flags().StringVar(&conditionsJSON, "conditions", "", "conditions as JSON")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}
