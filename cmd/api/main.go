package main

import (
	"flag"
	"os"

	"github.com/unihub/unihub/internal/pkg/logger"
	"github.com/unihub/unihub/internal/server"
)

// @title UniHub API
// @version 1.0
// @description API for the UniHub university social platform
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@unihub.example

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization

func main() {
	configPath := flag.String("config", envOr("UNIHUB_CONFIG", "configs/config.yaml"), "path to the YAML configuration file")
	flag.Parse()

	srv, err := server.NewServer(*configPath)
	if err != nil {
		// Setup functions already logged the details
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
