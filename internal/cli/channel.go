package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/peerwatch/peerwatch/pkg/client"
)

func newChannelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channel",
		Short: "Manage notification channels",
	}

	cmd.AddCommand(newChannelListCmd())
	cmd.AddCommand(newChannelGetCmd())
	cmd.AddCommand(newChannelCreateCmd())
	cmd.AddCommand(newChannelDeleteCmd())
	cmd.AddCommand(newChannelTestCmd())

	return cmd
}

func newChannelListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List notification channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			channels, err := apiClient.Channels().List(context.Background())
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(channels)
			}

			t := NewTable("ID", "NAME", "TYPE", "ENABLED", "OK", "FAILED", "LAST USED")
			for _, c := range channels {
				t.AddRow(
					truncate(c.ID, 12),
					truncate(c.Name, 30),
					c.Type,
					formatBool(c.IsEnabled),
					strconv.FormatInt(c.SuccessCount, 10),
					strconv.FormatInt(c.FailureCount, 10),
					formatTime(c.LastUsedAt),
				)
			}
			t.Render()
			return nil
		},
	}
}

func newChannelGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			channel, err := apiClient.Channels().Get(context.Background(), args[0])
			if err != nil {
				return err
			}
			return printOutput(channel)
		},
	}
}

func newChannelCreateCmd() *cobra.Command {
	var name, channelType, configJSON string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a notification channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			var config map[string]interface{}
			if configJSON != "" {
				if err := json.Unmarshal([]byte(configJSON), &config); err != nil {
					return fmt.Errorf("invalid config JSON: %w", err)
				}
			}

			channel, err := apiClient.Channels().Create(context.Background(), client.CreateChannelRequest{
				Name:   name,
				Type:   channelType,
				Config: config,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Channel %s created (%s)\n", channel.Name, channel.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "channel name (required)")
	cmd.Flags().StringVar(&channelType, "type", "", "channel type: email, webhook, slack, in_app (required)")
	cmd.Flags().StringVar(&configJSON, "config", "", "channel config as JSON, e.g. '{\"url\": \"https://...\"}'")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newChannelDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient.Channels().Delete(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Println("Channel deleted")
			return nil
		},
	}
}

func newChannelTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <id>",
		Short: "Send a probe notification through a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient.Channels().Test(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Println("Test notification delivered")
			return nil
		},
	}
}
