package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/app"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "rocket",
	Short: "Rocket document analysis CLI",
	Long:  `Rocket orchestrates asynchronous document analysis pipelines (RFP and proposal evaluation) backed by Postgres, pgvector and Redis.`,
	Run: func(cmd *cobra.Command, args []string) {
		// If no subcommand is given, print help.
		cmd.Help()
	},
	// PersistentPreRunE runs before any subcommand's RunE
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		appInstance, err := app.NewApp(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}

		// Store the app instance in the command's context
		ctx := context.WithValue(cmd.Context(), appKey, appInstance)
		cmd.SetContext(ctx)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Define a custom type for the context key to avoid collisions.
type contextKey string

const appKey contextKey = "app"

// GetAppFromContext retrieves the app instance stored by PersistentPreRunE.
func GetAppFromContext(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application instance not found in context")
	}
	return appInstance, nil
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(usageCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check database connectivity and other diagnostics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		appInstance, err := GetAppFromContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to get app instance: %w", err)
		}

		fmt.Println("Checking primary database connectivity...")
		if err := appInstance.TaskStore.Ping(ctx); err != nil {
			return fmt.Errorf("primary database ping failed: %w", err)
		}
		fmt.Println("Primary database connection successful.")

		fmt.Println("Checking vector database connectivity...")
		if err := appInstance.VectorStore.Ping(ctx); err != nil {
			return fmt.Errorf("vector database ping failed: %w", err)
		}
		fmt.Println("Vector database connection successful.")

		return nil
	},
}
