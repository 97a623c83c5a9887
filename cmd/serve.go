package cmd

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/apihandlers"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Starts an HTTP server exposing document ingestion, pipeline submission
and task tracking via a RESTful API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		router := gin.Default()

		apiHandler := &apihandlers.APIHandler{App: appInstance}
		apiHandler.RegisterRoutes(router)

		router.GET("/health", func(c *gin.Context) {
			if err := appInstance.TaskStore.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		listenAddr := serveAddr
		if listenAddr == "" {
			listenAddr = appInstance.Config.Server.Address
		}
		log.WithField("addr", listenAddr).Info("starting API server")

		if err := router.Run(listenAddr); err != nil {
			return fmt.Errorf("failed to run API server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (overrides server.address from config)")
}
