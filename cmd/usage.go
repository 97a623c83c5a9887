package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/clix"
)

var (
	usageListLimit  int
	usageListOffset int
)

// usageCmd represents the base command for AI usage cost operations.
var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Manage and view AI usage costs",
	Long:  `Provides subcommands to list detailed AI usage logs and view cost summaries.`,
}

var usageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List detailed AI usage logs",
	Long:  `Displays a paginated list of recorded AI API calls with associated costs and token counts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		pagination, err := clix.ParsePagination(cmd.Flags())
		if err != nil {
			return fmt.Errorf("invalid pagination flags: %w", err)
		}

		logs, err := appInstance.UsageStore.ListUsage(cmd.Context(), pagination.Limit, pagination.Offset)
		if err != nil {
			return fmt.Errorf("failed to list usage logs: %w", err)
		}

		if len(logs) == 0 {
			fmt.Println("No usage logs found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTimestamp\tProvider\tService\tModel\tIn Tokens\tOut Tokens\tCost\tPipelineID\tTaskID")
		fmt.Fprintln(w, "--\t---------\t--------\t-------\t-----\t---------\t----------\t----\t----------\t------")

		for _, entry := range logs {
			pipelineIDStr := "N/A"
			if entry.RelatedPipelineID != nil {
				pipelineIDStr = entry.RelatedPipelineID.String()
			}
			taskIDStr := "N/A"
			if entry.RelatedTaskID != nil {
				taskIDStr = entry.RelatedTaskID.String()
			}

			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%d\t%.8f\t%s\t%s\n",
				entry.ID,
				entry.Timestamp.Format("2006-01-02 15:04:05"),
				entry.ProviderName,
				entry.ServiceType,
				entry.ModelName,
				entry.InputTokens,
				entry.OutputTokens,
				entry.Cost,
				pipelineIDStr,
				taskIDStr,
			)
		}
		w.Flush()

		fmt.Printf("\nDisplayed %d logs.\n", len(logs))
		return nil
	},
}

var usageSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show summary of total AI costs and token usage",
	Long:  `Calculates and displays the total cost, total input tokens, and total output tokens across all recorded AI usage.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		totalCost, totalInput, totalOutput, err := appInstance.UsageStore.GetUsageSummary(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get usage summary: %w", err)
		}

		fmt.Println("AI Usage Cost Summary:")
		fmt.Println("----------------------")
		fmt.Printf("Total Cost:        $%.6f\n", totalCost)
		fmt.Printf("Total Input Tokens: %d\n", totalInput)
		fmt.Printf("Total Output Tokens:%d\n", totalOutput)
		fmt.Println("----------------------")

		return nil
	},
}

func init() {
	usageCmd.AddCommand(usageListCmd)
	usageCmd.AddCommand(usageSummaryCmd)

	usageListCmd.Flags().IntVarP(&usageListLimit, "limit", "l", 50, "Number of logs to display")
	usageListCmd.Flags().IntVarP(&usageListOffset, "offset", "o", 0, "Number of logs to skip")

	// usageCmd itself is registered in root.go's init.
}
