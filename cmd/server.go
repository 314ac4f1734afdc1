package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"monochrome/handlers"
	"monochrome/middleware"
	"monochrome/services"
	"monochrome/types"
	"monochrome/websocket"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCommand(withApp appRunner) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Port = port
			}
			return startWebServer(a)
		}),
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on (overrides SERVER_PORT and the config file)")
	return cmd
}

// startWebServer serves the API until SIGINT or SIGTERM
func startWebServer(a *app) error {
	// Set production mode if not specified
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		gin.SetMode(mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r, cleanup := newRouter(a)
	defer cleanup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.Port),
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Monochrome web server starting on port %d", a.cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-sigChan:
		log.Printf("Shutting down web server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// newRouter wires services, handlers and routes. cleanup stops the hub.
func newRouter(a *app) (*gin.Engine, func()) {
	hub := websocket.NewHub(func() types.SnapshotMessage {
		return handlers.Snapshot(a.tracker)
	})
	go hub.Run()

	fileService := services.NewFileService(a.cfg)
	deviceSaver := services.NewDeviceSaver(a.cfg)

	downloadHandler := handlers.NewDownloadHandler(a.tracker, hub)
	fileHandler := handlers.NewFileHandler(a.cfg, fileService, deviceSaver)
	healthHandler := handlers.NewHealthHandler(a.cfg, a.tracker)
	settingsHandler := handlers.NewSettingsHandler(a.cfg)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(a.cfg.CORSOrigins))
	r.Use(middleware.Logging())
	r.Use(middleware.Security())

	setupRoutes(r, downloadHandler, fileHandler, healthHandler, settingsHandler)

	return r, func() {
		downloadHandler.Close()
		hub.Stop()
	}
}

// setupRoutes configures all the HTTP routes
func setupRoutes(r *gin.Engine, downloadHandler *handlers.DownloadHandler, fileHandler *handlers.FileHandler, healthHandler *handlers.HealthHandler, settingsHandler *handlers.SettingsHandler) {
	// Health check endpoint
	r.GET("/health", healthHandler.HealthCheck)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/status", healthHandler.APIStatus)

		// Download tracking
		downloadsGroup := apiGroup.Group("/downloads")
		{
			downloadsGroup.GET("", downloadHandler.GetActive)
			downloadsGroup.POST("", downloadHandler.StartDownload)
			downloadsGroup.GET("/history", downloadHandler.GetHistory)
			downloadsGroup.DELETE("/history", downloadHandler.ClearHistory)
			downloadsGroup.PUT("/:id/progress", downloadHandler.UpdateProgress)
			downloadsGroup.POST("/:id/complete", downloadHandler.CompleteDownload)
			downloadsGroup.POST("/:id/fail", downloadHandler.FailDownload)
		}

		// Live tracker snapshots
		apiGroup.GET("/ws/downloads", downloadHandler.HandleWebSocketConnection)

		// Local files
		filesGroup := apiGroup.Group("/files")
		{
			filesGroup.GET("", fileHandler.ListFiles)
			filesGroup.POST("/pick", fileHandler.PickFolder)
			filesGroup.GET("/read", fileHandler.ReadFile)
			filesGroup.POST("/save", fileHandler.SaveFile)
			filesGroup.GET("/stream/*filepath", fileHandler.StreamFile)
		}

		// Settings endpoints
		apiGroup.GET("/settings", settingsHandler.GetSettings)
		apiGroup.POST("/settings", settingsHandler.UpdateSettings)
	}
}
