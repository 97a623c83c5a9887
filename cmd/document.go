package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/fileingest"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/models"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/util"
)

var docAddTitle string

// documentCmd represents the base command for document operations.
var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Ingest and inspect documents",
}

var documentAddCmd = &cobra.Command{
	Use:   "add <file>",
	Short: "Add a document from a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		path := args[0]
		content, err := fileingest.ReadFileContent(path)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		if util.IsLikelyBinary(content) {
			return fmt.Errorf("%s looks like a binary file", path)
		}
		cleaned, err := util.CleanContent(content, path)
		if err != nil {
			return fmt.Errorf("failed to clean file content: %w", err)
		}

		title := docAddTitle
		if title == "" {
			title = fileingest.TitleFromPath(path)
		}

		doc := &models.Document{
			Title:       title,
			Content:     cleaned,
			ContentType: fileingest.DetectContentType(path),
		}
		if err := appInstance.DocumentStore.CreateDocument(cmd.Context(), doc); err != nil {
			return fmt.Errorf("failed to create document: %w", err)
		}

		fmt.Printf("%s document created: %s (%s)\n", color.GreenString("OK:"), doc.ID, doc.Title)
		return nil
	},
}

var documentAddDirCmd = &cobra.Command{
	Use:   "add-dir <directory>",
	Short: "Add all supported documents under a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		files, err := fileingest.DiscoverFiles(args[0])
		if err != nil {
			return fmt.Errorf("failed to scan directory: %w", err)
		}
		if len(files) == 0 {
			fmt.Println("No ingestable files found.")
			return nil
		}

		var added int
		for _, f := range files {
			content, err := fileingest.ReadFileContent(f.Path)
			if err != nil {
				fmt.Printf("  - %s: %v\n", color.RedString("ERROR"), err)
				continue
			}
			if util.IsLikelyBinary(content) {
				fmt.Printf("  - %s: %s looks binary, skipped\n", color.YellowString("SKIP"), f.Path)
				continue
			}
			cleaned, err := util.CleanContent(content, f.Path)
			if err != nil {
				fmt.Printf("  - %s: %v\n", color.RedString("ERROR"), err)
				continue
			}
			doc := &models.Document{
				Title:       fileingest.TitleFromPath(f.Path),
				Content:     cleaned,
				ContentType: fileingest.DetectContentType(f.Path),
			}
			if err := appInstance.DocumentStore.CreateDocument(cmd.Context(), doc); err != nil {
				fmt.Printf("  - %s: %v\n", color.RedString("ERROR"), err)
				continue
			}
			fmt.Printf("  - %s %s (%s)\n", color.GreenString("Added"), doc.ID, f.Path)
			added++
		}

		fmt.Printf("\nAdded %d of %d files.\n", added, len(files))
		return nil
	},
}

var documentGetCmd = &cobra.Command{
	Use:   "get <document-id>",
	Short: "Show a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid document id: %w", err)
		}

		doc, err := appInstance.DocumentStore.GetDocument(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to get document: %w", err)
		}

		fmt.Printf("Document %s\n", doc.ID)
		fmt.Printf("  Title:        %s\n", doc.Title)
		fmt.Printf("  Content-Type: %s\n", doc.ContentType)
		fmt.Printf("  Created:      %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("\n%s\n", doc.Content)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(documentCmd)
	documentCmd.AddCommand(documentAddCmd)
	documentCmd.AddCommand(documentAddDirCmd)
	documentCmd.AddCommand(documentGetCmd)

	documentAddCmd.Flags().StringVar(&docAddTitle, "title", "", "Document title (defaults to the file name)")
}
