package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"talentr/api/clients/onboarding"
	"talentr/internal/activities"
	"talentr/internal/config"
	"talentr/internal/workflows"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	cfg := config.FromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	healthSrv := startHealthServer(cfg.HealthAddr)
	defer func() {
		_ = healthSrv.Shutdown(context.Background())
	}()

	address := cfg.TemporalAddress
	if address == "" {
		address = "localhost:7233"
	}
	temporalClient, err := client.Dial(client.Options{
		HostPort:  address,
		Namespace: cfg.TemporalNamespace,
	})
	if err != nil {
		log.Fatalf("failed to create temporal client: %v", err)
	}
	defer temporalClient.Close()

	principal := onboarding.Principal{
		Subject: cfg.ServiceSubject,
		Scopes:  splitCSV(cfg.ServiceScopes),
	}
	apiClient := onboarding.NewClient(cfg.APIBaseURL, onboarding.WithPrincipal(principal))

	acts := activities.New(apiClient)
	w := worker.New(temporalClient, cfg.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.InviteWorkflow)
	w.RegisterActivityWithOptions(acts.Remind, activity.RegisterOptions{Name: activities.RemindActivityName})
	w.RegisterActivityWithOptions(acts.ExpireLead, activity.RegisterOptions{Name: activities.ExpireLeadActivityName})

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	log.Printf("lifecycle worker listening on task queue %s", cfg.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker exited: %v", err)
	}
}

func startHealthServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("health server error: %v", err)
		}
	}()
	return srv
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
