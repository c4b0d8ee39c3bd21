// Command hodei-server is the orchestrator process: it wires the
// repositories, worker registry/factory, worker channel, event bus,
// execution engine, IAM store, audit log, and REST façade together and
// serves them over HTTP, the way the teacher's cmd/webui composes a
// storage manager, cache, and client into one bound HTTP server
// (cmd/webui/main.go).
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	dockerclient "github.com/docker/docker/client"
	"golang.org/x/sync/errgroup"

	"github.com/rubentxu/hodei-pipelines/internal/audit"
	"github.com/rubentxu/hodei-pipelines/internal/channel"
	"github.com/rubentxu/hodei-pipelines/internal/config"
	"github.com/rubentxu/hodei-pipelines/internal/execution/engine"
	"github.com/rubentxu/hodei-pipelines/internal/execution/events"
	"github.com/rubentxu/hodei-pipelines/internal/iam"
	"github.com/rubentxu/hodei-pipelines/internal/logging"
	"github.com/rubentxu/hodei-pipelines/internal/repository"
	"github.com/rubentxu/hodei-pipelines/internal/restapi"
	"github.com/rubentxu/hodei-pipelines/internal/scheduler/pool"
	"github.com/rubentxu/hodei-pipelines/internal/scheduler/strategy"
	"github.com/rubentxu/hodei-pipelines/internal/template"
	"github.com/rubentxu/hodei-pipelines/internal/worker/docker"
	"github.com/rubentxu/hodei-pipelines/internal/worker/factory"
	"github.com/rubentxu/hodei-pipelines/internal/worker/registry"
)

func main() {
	configFile := flag.String("config", "", "Path to hodei-server config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logging.InfoLevel
	}
	log := logging.New(&logging.Config{Level: level, Format: logging.TextFormat, Output: os.Stderr})

	jobs := repository.NewJobRepository()
	pools := repository.NewPoolRepository()
	templates := repository.NewTemplateRepository()

	templateValidator := template.New(templates)
	strategies := strategy.NewRegistry()

	dockerCli, err := dockerclient.NewClientWithOpts(dockerclient.FromEnv, dockerclient.WithAPIVersionNegotiation())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to construct docker client: %v\n", err)
		os.Exit(1)
	}
	channelURL := fmt.Sprintf("ws://hodei-server:%d/ws", cfg.HTTP.Port)
	dockerFactory := docker.New(dockerCli, cfg.Docker.Image, channelURL, log)
	workerFactory := factory.NewMultiplexer(dockerFactory)

	workerRegistry := registry.New(workerFactory)
	monitor := pool.NewRegistryMonitor(pools, workerRegistry)
	evaluator := pool.NewEvaluator(monitor)

	bus := events.New(log)
	eng := engine.New(jobs, templateValidator, workerRegistry, workerFactory, bus, log)

	ch := channel.New(log)
	ch.SetEngine(eng)
	ch.SetUnregistrar(workerRegistry)
	ch.SetRegistrar(workerRegistry)
	eng.SetComms(ch)

	users := iam.New([]byte(cfg.Auth.JWTSecret), time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	if _, err := users.CreateUser("admin", "changeme", []string{"admin"}); err != nil {
		log.Warn("failed to seed default admin user: " + err.Error())
	}

	auditLog := audit.New()

	srv := restapi.New(eng, ch, jobs, pools, templates, evaluator, strategies, users, auditLog, log)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	httpServer := &http.Server{Addr: addr, Handler: srv}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithField("addr", addr).Info("hodei-server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed: " + err.Error())
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Stop accepting HTTP work and drain open worker connections
	// concurrently — neither has to wait on the other.
	var g errgroup.Group
	g.Go(func() error { return httpServer.Shutdown(shutdownCtx) })
	g.Go(func() error { ch.Shutdown(shutdownCtx); return nil })
	if err := g.Wait(); err != nil {
		log.Warn("shutdown error: " + err.Error())
	}
}
