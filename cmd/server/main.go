package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"pred-prey/internal/api"
	"pred-prey/internal/config"
	"pred-prey/internal/render"
	"pred-prey/internal/sim"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🐇 ================================")
	log.Println("🐇  PREDATOR / PREY ON A TORUS")
	log.Println("🐇 ================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	appConfig := config.Load()
	simCfg := appConfig.Sim
	serverCfg := appConfig.Server

	log.Printf("🎮 Config: %d prey, %d predators, grid %d, %d TPS",
		simCfg.NPrey, simCfg.NPred, simCfg.GridSize, simCfg.TickRate)

	engine, err := sim.NewEngine(simCfg)
	if err != nil {
		log.Fatalf("❌ Invalid simulation config: %v", err)
	}

	engine.OnTick = func(st sim.StepStats) {
		api.RecordStep(st)
		el := engine.EventLog()
		api.UpdateEventLogStats(el.GetTotalCount(), el.GetDroppedCount())
	}
	engine.OnExtinct = func(st sim.StepStats) {
		log.Printf("🏁 Run %s finished at tick %d; POST /api/sim/reset to start another", engine.RunID(), st.Tick)
	}

	if serverCfg.EventLogPath != "" {
		if err := engine.StartEventLog(serverCfg.EventLogPath); err != nil {
			log.Printf("⚠️ Event log disabled: %v", err)
		} else {
			log.Printf("📝 Event log: %s", serverCfg.EventLogPath)
		}
	}

	// Start debug server
	debugCfg := api.DefaultObservabilityConfig()
	debugCfg.ListenAddr = serverCfg.DebugAddr
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(debugCfg); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	renderer := render.New(appConfig.Render)
	log.Printf("🖼️ Frames: %dx%d at /api/frame.png", renderer.Size(), renderer.Size())

	server := api.NewServer(engine, renderer, simCfg, serverCfg)

	engine.Start()
	log.Println("✅ Simulation started")

	go func() {
		addr := ":" + strconv.Itoa(serverCfg.Port)
		log.Printf("🌐 API server on http://localhost%s", addr)
		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ Server shutdown: %v", err)
	}
	engine.Stop()
	engine.StopEventLog()
	log.Println("👋 Goodbye!")
}
