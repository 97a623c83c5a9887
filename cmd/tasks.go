package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/clix"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/models"
)

var (
	tasksListLimit  int
	tasksListOffset int
	tasksListStatus string
)

// tasksCmd represents the base command for task operations.
var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List and manage pipeline tasks",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		pagination, err := clix.ParsePagination(cmd.Flags())
		if err != nil {
			return fmt.Errorf("invalid pagination flags: %w", err)
		}

		tasks, err := appInstance.PipelineService.ListTasks(cmd.Context(),
			pagination.Limit, pagination.Offset, models.TaskStatus(tasksListStatus))
		if err != nil {
			return fmt.Errorf("failed to list tasks: %w", err)
		}

		if len(tasks) == 0 {
			fmt.Println("No tasks found.")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "Name", "Type", "Status", "Retries", "Created At"})
		table.SetBorder(false)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetAlignment(tablewriter.ALIGN_LEFT)

		for _, t := range tasks {
			table.Append([]string{
				t.InternalID.String(),
				t.Name,
				string(t.Type),
				colorStatus(string(t.Status)),
				fmt.Sprintf("%d/%d", t.Retries, t.MaxRetries),
				t.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		table.Render()
		return nil
	},
}

var tasksStatusCmd = &cobra.Command{
	Use:   "status <task-id>",
	Short: "Show the full state of a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid task id: %w", err)
		}

		task, err := appInstance.PipelineService.GetTaskStatus(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to get task: %w", err)
		}

		fmt.Printf("Task %s\n", task.InternalID)
		fmt.Printf("  Name:     %s\n", task.Name)
		fmt.Printf("  Type:     %s\n", task.Type)
		fmt.Printf("  Status:   %s\n", colorStatus(string(task.Status)))
		fmt.Printf("  Priority: %s\n", task.Priority)
		fmt.Printf("  Retries:  %d/%d\n", task.Retries, task.MaxRetries)
		if task.StartedAt != nil {
			fmt.Printf("  Started:  %s\n", task.StartedAt.Format("2006-01-02 15:04:05"))
		}
		if task.CompletedAt != nil {
			fmt.Printf("  Finished: %s\n", task.CompletedAt.Format("2006-01-02 15:04:05"))
		}
		if task.ErrorMessage != nil {
			fmt.Printf("  Error:    %s\n", color.RedString(*task.ErrorMessage))
		}
		if len(task.Result) > 0 {
			fmt.Printf("  Result:   %s\n", string(task.Result))
		}
		return nil
	},
}

var tasksCancelCmd = &cobra.Command{
	Use:   "cancel <task-id>",
	Short: "Request cancellation of a task",
	Long: `Marks the task for cancellation. Pending tasks are canceled immediately;
running tasks stop at the next step boundary.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid task id: %w", err)
		}

		if err := appInstance.PipelineService.CancelTask(cmd.Context(), id); err != nil {
			return fmt.Errorf("failed to cancel task: %w", err)
		}

		fmt.Printf("%s cancellation requested for task %s\n", color.GreenString("OK:"), id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tasksCmd)
	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksStatusCmd)
	tasksCmd.AddCommand(tasksCancelCmd)

	tasksListCmd.Flags().IntVarP(&tasksListLimit, "limit", "l", 20, "Number of tasks to display")
	tasksListCmd.Flags().IntVarP(&tasksListOffset, "offset", "o", 0, "Number of tasks to skip")
	tasksListCmd.Flags().StringVarP(&tasksListStatus, "status", "s", "", "Filter by status (pending, running, completed, failed, retrying, canceled)")
}
