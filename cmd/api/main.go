package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"property-pipeline/internal/config"
	"property-pipeline/internal/database"
	"property-pipeline/internal/handlers"
	"property-pipeline/internal/jobs"
	"property-pipeline/internal/metrics"
	"property-pipeline/internal/ratelimit"
	"property-pipeline/internal/scheduler"
	"property-pipeline/internal/search"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	config.LoadDotEnv()
	configPath := getEnv("CONFIG_PATH", "config/pipeline.yaml")
	appConfig, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config from %s: %v", configPath, err)
	}
	log.Printf("[Main] config loaded path=%s db=%s", configPath, appConfig.Database.Type)

	store, err := database.OpenConfigured(appConfig.Database)
	if err != nil {
		log.Fatalf("Failed to open listing store: %v", err)
	}
	defer store.Close()

	m := metrics.New()
	limiter := ratelimit.NewKeyedLimiter(
		appConfig.RateLimit.JobsPerMinute,
		appConfig.RateLimit.JobsPerHour,
		appConfig.RateLimit.JobsPerDay,
		appConfig.RateLimit.Enabled,
	)
	log.Printf("[Main] job rate limits: %d/min, %d/hour, %d/day (enabled: %v)",
		appConfig.RateLimit.JobsPerMinute,
		appConfig.RateLimit.JobsPerHour,
		appConfig.RateLimit.JobsPerDay,
		appConfig.RateLimit.Enabled,
	)

	runner := jobs.NewScriptRunner(scriptConfig(appConfig.Scripts), nil)
	dispatcher := jobs.NewDispatcher(runner, store, limiter, m)

	var searcher handlers.Searcher
	if appConfig.Search.Enabled {
		mc := appConfig.Search.Meilisearch
		client := search.NewSearchClient(mc.Host, mc.APIKey, mc.Index)
		if err := client.InitIndex(); err != nil {
			log.Printf("[Main] warning: search index init failed: %v", err)
		}
		searcher = client
		log.Printf("[Main] search enabled host=%s index=%s", mc.Host, mc.Index)
	}

	sched := scheduler.NewScheduler(store, dispatcher, appConfig.Enrichment)
	if err := sched.Start(); err != nil {
		log.Printf("[Main] warning: failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	h := handlers.New(store, dispatcher, handlers.Options{
		Search:       searcher,
		Scheduler:    sched,
		Metrics:      m,
		JobLimits:    limiter,
		DefaultLimit: appConfig.Server.DefaultListLimit,
	})
	router := handlers.NewRouter(h, handlers.RouterConfig{
		CORSOrigins:    appConfig.Server.CORSOrigins,
		RequestTimeout: appConfig.Server.GetRequestTimeout(),
		LogRequests:    appConfig.Logging.LogRequests,
	})

	srv := &http.Server{
		Addr:    ":" + appConfig.Server.Port,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server starting on port %s", appConfig.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[Main] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Main] shutdown: %v", err)
	}
}

func scriptConfig(cfg config.ScriptsConfig) jobs.ScriptConfig {
	sc := jobs.ScriptConfig{
		Python:     cfg.Python,
		ScriptsDir: cfg.Dir,
		WorkDir:    cfg.WorkDir,
		Timeout:    cfg.GetTimeout(),
		Timeouts:   map[jobs.Kind]time.Duration{},
		Scripts:    map[jobs.Kind]string{},
	}
	for job, d := range cfg.GetTimeouts() {
		sc.Timeouts[jobs.Kind(job)] = d
	}
	for job, script := range cfg.Overrides {
		sc.Scripts[jobs.Kind(job)] = script
	}
	return sc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
