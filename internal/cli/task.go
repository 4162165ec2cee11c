package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Inspect and trigger background tasks",
	}

	cmd.AddCommand(newTaskListCmd())
	cmd.AddCommand(newTaskRunCmd())

	return cmd
}

func newTaskListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered background tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := apiClient.Tasks().List(context.Background())
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(tasks)
			}

			for _, name := range tasks {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func newTaskRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <name>",
		Short: "Trigger a task immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient.Tasks().Run(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Task %s completed\n", args[0])
			return nil
		},
	}
}
