package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AntonStoeckl/dialogue-trackerstore-go/config"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/domain"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/eventchannel"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/slots"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/trackerstore"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/trackerstore/promadapters"
)

const (
	defaultRate            = 20
	defaultConversations   = 200
	defaultScenarioWeights = "20,70,10" // open, continue, restart
	defaultMetricsAddr     = ":2112"
)

// defaultDomainYAML is used when no domain file is given.
const defaultDomainYAML = `
slots:
  cuisine:
    type: categorical
    values: [italian, indian, mexican]
  party_size:
    type: float
    min_value: 1
    max_value: 12
  outdoor_seating:
    type: bool
  requested_slot:
    type: unfeaturized
`

type Config struct {
	Rate            int
	Conversations   int
	ScenarioWeights []int
	EndpointsFile   string
	DotenvFiles     []string
	DomainFile      string
	MetricsAddr     string
	OTLPEndpoint    string
	Debug           bool
}

func main() {
	cfg := parseFlags()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	endpoints, err := config.Load(cfg.EndpointsFile, cfg.DotenvFiles...)
	if err != nil {
		log.Fatalf("Failed to load endpoints: %v", err)
	}

	dialogueDomain, err := loadDomain(cfg.DomainFile, logger)
	if err != nil {
		log.Fatalf("Failed to load domain: %v", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	storeOptions := []trackerstore.Option{
		trackerstore.WithLogger(logger),
		trackerstore.WithMetrics(promadapters.NewMetricsCollector(registry)),
	}

	if cfg.OTLPEndpoint != "" {
		providers, err := newOTelProviders(ctx, cfg.OTLPEndpoint)
		if err != nil {
			log.Fatalf("Failed to set up OpenTelemetry: %v", err)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := providers.Shutdown(shutdownCtx); err != nil {
				log.Printf("Failed to shut down OpenTelemetry providers: %v", err)
			}
		}()

		storeOptions = append(storeOptions, providers.storeOptions()...)
	}

	channel, err := eventchannel.NewFromConfig(ctx, endpoints.EventBroker, logger)
	if err != nil {
		log.Fatalf("Failed to create event channel: %v", err)
	}
	if channel != nil {
		defer func() { _ = channel.Close() }()
		storeOptions = append(storeOptions, trackerstore.WithEventChannel(channel))
	}

	// New keeps retrying an unreachable backend, so the signal has to be able to cancel it.
	go func() {
		select {
		case sig := <-sigChan:
			log.Printf("Received signal %v, initiating graceful shutdown...", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	store, err := trackerstore.New(ctx, endpoints.TrackerStore, dialogueDomain, storeOptions...)
	if err != nil {
		log.Fatalf("Failed to create tracker store: %v", err)
	}
	defer func() { _ = store.Close() }()

	metricsServer := startMetricsServer(cfg.MetricsAddr, registry)

	loadGen := NewLoadGenerator(store, cfg)

	errChan := make(chan error, 1)
	go func() {
		if err := loadGen.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errChan <- fmt.Errorf("load generator failed: %w", err)
		}
	}()

	log.Printf("Tracker store load generator started")
	log.Printf("Configuration: rate=%d req/s, conversations=%d, scenario_weights=%v, store=%q, broker=%q",
		cfg.Rate, cfg.Conversations, cfg.ScenarioWeights, endpoints.TrackerStore.Type, endpoints.EventBroker.Type)
	log.Printf("Press Ctrl+C to stop...")

	select {
	case <-ctx.Done():
	case err := <-errChan:
		log.Printf("Error occurred: %v", err)
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := loadGen.Stop(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	loadGen.ReportStoredConversations(shutdownCtx)

	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}

	log.Printf("Load generator stopped")
}

func parseFlags() Config {
	var (
		rate            = flag.Int("rate", defaultRate, "Requests per second")
		conversations   = flag.Int("conversations", defaultConversations, "Number of distinct sender ids to spread the load over")
		scenarioWeights = flag.String("scenario-weights", defaultScenarioWeights, "Comma-separated weights for open,continue,restart scenarios")
		endpointsFile   = flag.String("endpoints", "", "Endpoints YAML file, empty uses the environment only")
		dotenvFiles     = flag.String("env-files", "", "Comma-separated dotenv files to load before the environment overlay")
		domainFile      = flag.String("domain", "", "Domain YAML file, empty uses a built-in restaurant domain")
		metricsAddr     = flag.String("metrics-addr", defaultMetricsAddr, "Listen address of the /metrics endpoint, empty disables it")
		otlpEndpoint    = flag.String("otlp-endpoint", "", "OTLP gRPC collector address for traces and store metrics, empty disables it")
		debug           = flag.Bool("debug", false, "Log at debug level")
	)

	flag.Parse()

	weights, err := parseScenarioWeights(*scenarioWeights)
	if err != nil {
		log.Fatalf("Invalid scenario weights '%s': %v", *scenarioWeights, err)
	}

	if *rate <= 0 || *conversations <= 0 {
		log.Fatalf("rate and conversations must be positive, got rate=%d conversations=%d", *rate, *conversations)
	}

	return Config{
		Rate:            *rate,
		Conversations:   *conversations,
		ScenarioWeights: weights,
		EndpointsFile:   *endpointsFile,
		DotenvFiles:     splitList(*dotenvFiles),
		DomainFile:      *domainFile,
		MetricsAddr:     *metricsAddr,
		OTLPEndpoint:    *otlpEndpoint,
		Debug:           *debug,
	}
}

func parseScenarioWeights(weightsStr string) ([]int, error) {
	parts := strings.Split(weightsStr, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("expected 3 weights, got %d", len(parts))
	}

	weights := make([]int, 3)
	total := 0
	for i, part := range parts {
		weight, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid weight '%s': %w", part, err)
		}
		if weight < 0 || weight > 100 {
			return nil, fmt.Errorf("weight %d out of range [0, 100]", weight)
		}
		weights[i] = weight
		total += weight
	}

	if total != 100 {
		return nil, fmt.Errorf("weights must sum to 100, got %d", total)
	}

	return weights, nil
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}

	return items
}

func loadDomain(path string, logger *slog.Logger) (*domain.Domain, error) {
	options := []domain.Option{
		domain.WithLogger(logger),
		domain.WithSlotOptions(slots.WithLogger(logger)),
	}

	if path != "" {
		return domain.LoadFile(path, options...)
	}

	return domain.Load([]byte(defaultDomainYAML), options...)
}

func startMetricsServer(addr string, registry *prometheus.Registry) *http.Server {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Metrics server failed: %v", err)
		}
	}()

	log.Printf("Serving metrics on %s/metrics", addr)

	return server
}
