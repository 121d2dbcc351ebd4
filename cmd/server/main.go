package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"dropzone/internal/api"
	"dropzone/internal/config"
	"dropzone/internal/room"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load("../.env"); err != nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("no .env file found, using environment variables only")
		}
	} else {
		log.Println("loaded environment from ../.env")
	}

	appConfig := config.Load()
	roomCfg := appConfig.Room
	serverCfg := appConfig.Server

	port := strconv.Itoa(serverCfg.Port)
	log.Printf("room server: %d Hz tick, %.0fx%.0f world, reap grace %s", roomCfg.TickHz, roomCfg.Width, roomCfg.Height, roomCfg.ReapGrace)

	manager := room.NewManager(roomCfg.ReapGrace, roomCfg.Width, roomCfg.Height)

	adminAuthEnabled := serverCfg.OperatorToken != ""
	var sessionManager *api.SessionManager
	if adminAuthEnabled {
		sessionManager = api.NewSessionManager(serverCfg.OperatorToken)
		log.Println("admin authentication ENABLED")
	} else {
		log.Println("admin authentication DISABLED (set OPERATOR_TOKEN to enable)")
	}

	api.SetAllowedOrigins(serverCfg.CORSOrigins)

	debugCfg := api.DefaultObservabilityConfig()
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(debugCfg); err != nil {
			log.Printf("debug server disabled: %v", err)
		}
	}

	server := api.NewServerWithAuth(manager, sessionManager, adminAuthEnabled)

	go func() {
		addr := ":" + port
		log.Printf("API server on http://localhost%s", addr)
		log.Printf("Admin panel: http://localhost%s/admin", addr)
		if err := server.Start(addr); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("server ready, press Ctrl+C to stop")
	<-quit

	log.Println("shutting down...")
	server.Stop()
	log.Println("goodbye")
}
