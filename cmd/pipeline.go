package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/models"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/services"
)

var (
	submitType      string
	submitPrincipal string
	submitReference string
	submitDocs      []string
	submitPriority  string
)

// pipelineCmd represents the base command for pipeline operations.
var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Submit and inspect analysis pipelines",
}

var pipelineSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a new analysis pipeline",
	Long: `Creates a pipeline with its document set and enqueues the task that runs it.
Proposal pipelines require --reference pointing at a completed RFP pipeline.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		principalID, err := uuid.Parse(submitPrincipal)
		if err != nil {
			return fmt.Errorf("invalid --principal id: %w", err)
		}

		req := services.SubmitPipelineRequest{
			Type:                models.PipelineType(submitType),
			PrincipalDocumentID: principalID,
			Priority:            models.TaskPriority(submitPriority),
		}
		if submitReference != "" {
			refID, err := uuid.Parse(submitReference)
			if err != nil {
				return fmt.Errorf("invalid --reference id: %w", err)
			}
			req.ReferencePipelineID = &refID
		}
		for _, raw := range submitDocs {
			docID, err := uuid.Parse(raw)
			if err != nil {
				return fmt.Errorf("invalid --doc id %q: %w", raw, err)
			}
			req.Documents = append(req.Documents, services.SubmitDocument{ID: docID})
		}

		task, pipeline, err := appInstance.PipelineService.SubmitPipeline(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("failed to submit pipeline: %w", err)
		}

		fmt.Printf("%s pipeline submitted.\n", color.GreenString("OK:"))
		fmt.Printf("  Pipeline ID: %s\n", pipeline.ID)
		fmt.Printf("  Task ID:     %s\n", task.InternalID)
		fmt.Printf("  Status:      %s\n", task.Status)
		return nil
	},
}

var pipelineStatusCmd = &cobra.Command{
	Use:   "status <pipeline-id>",
	Short: "Show the status and result of a pipeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid pipeline id: %w", err)
		}

		pipeline, err := appInstance.PipelineService.GetPipeline(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to get pipeline: %w", err)
		}

		fmt.Printf("Pipeline %s\n", pipeline.ID)
		fmt.Printf("  Type:      %s\n", pipeline.Type)
		fmt.Printf("  Status:    %s\n", colorStatus(string(pipeline.Status)))
		fmt.Printf("  Principal: %s\n", pipeline.PrincipalDocumentID)
		if pipeline.ReferencePipelineID != nil {
			fmt.Printf("  Reference: %s\n", *pipeline.ReferencePipelineID)
		}

		if len(pipeline.Documents) > 0 {
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Document", "Role", "Order"})
			table.SetBorder(false)
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			for _, d := range pipeline.Documents {
				table.Append([]string{
					d.DocumentID.String(),
					string(d.Role),
					fmt.Sprintf("%d", d.ProcessingOrder),
				})
			}
			table.Render()
		}

		if len(pipeline.Result) > 0 {
			var pretty json.RawMessage = pipeline.Result
			out, err := json.MarshalIndent(pretty, "", "  ")
			if err == nil {
				fmt.Printf("\nResult:\n%s\n", string(out))
			}
		}
		return nil
	},
}

func colorStatus(status string) string {
	switch status {
	case string(models.TaskStatusCompleted):
		return color.GreenString(status)
	case string(models.TaskStatusFailed):
		return color.RedString(status)
	case string(models.TaskStatusRetrying), string(models.TaskStatusRunning):
		return color.YellowString(status)
	default:
		return status
	}
}

func init() {
	rootCmd.AddCommand(pipelineCmd)
	pipelineCmd.AddCommand(pipelineSubmitCmd)
	pipelineCmd.AddCommand(pipelineStatusCmd)

	pipelineSubmitCmd.Flags().StringVar(&submitType, "type", "", "Pipeline type (rfp_analysis or proposal_analysis)")
	pipelineSubmitCmd.Flags().StringVar(&submitPrincipal, "principal", "", "Principal document ID")
	pipelineSubmitCmd.Flags().StringVar(&submitReference, "reference", "", "Reference RFP pipeline ID (required for proposal_analysis)")
	pipelineSubmitCmd.Flags().StringSliceVar(&submitDocs, "doc", nil, "Additional document ID (repeatable)")
	pipelineSubmitCmd.Flags().StringVar(&submitPriority, "priority", "", "Task priority (low, normal, high, critical)")
	pipelineSubmitCmd.MarkFlagRequired("type")
	pipelineSubmitCmd.MarkFlagRequired("principal")
}
