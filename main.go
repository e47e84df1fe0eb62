package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"survey-backend/cache"
	"survey-backend/database"
	"survey-backend/routes"

	"github.com/joho/godotenv"
)

// reconcileLockName serializes schema reconciliation across instances
const reconcileLockName = "schema:reconcile"

func main() {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	if err := database.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if err := cache.InitRedis(); err != nil {
		log.Printf("Warning: Redis initialization failed: %v", err)
	}

	reconcileSchema()

	router := routes.SetupRouter()
	srv := routes.StartServer(router)
	log.Println("Server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	database.CloseDB()
	cache.CloseRedis()

	log.Println("Server exited gracefully")
}

// reconcileSchema repairs legacy table shapes before any request is served.
// When Redis is reachable the run is wrapped in an advisory lock so multiple
// instances cannot alter the schema at once; reconciliation itself is
// idempotent, so a failed run is simply retried at next startup.
func reconcileSchema() {
	run := func() error {
		return database.Reconcile(database.DB)
	}

	var err error
	if lockSvc := cache.GetLockService(); lockSvc != nil {
		err = lockSvc.WithLock(reconcileLockName, 30*time.Second, run)
	} else {
		err = run()
	}
	if err != nil {
		log.Printf("Warning: schema reconciliation failed: %v", err)
		return
	}
	log.Println("Schema reconciliation complete")
}
