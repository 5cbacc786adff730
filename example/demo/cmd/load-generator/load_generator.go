// Package main implements a load generator for the dialogue tracker store which simulates
// conversations at a configurable request rate against whatever backend the endpoints select.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/dialogue-trackerstore-go/events"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/tracker"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/trackerstore"
)

const (
	scenarioOpen     = "open"
	scenarioContinue = "continue"
	scenarioRestart  = "restart"

	operationTimeout = 5 * time.Second
)

var (
	cuisines  = []string{"italian", "indian", "mexican", "thai"}
	greetings = []string{"hi", "hello there", "good evening"}
)

// LoadGenerator drives conversations against a trackerstore.Store with a fixed request rate.
type LoadGenerator struct {
	store  *trackerstore.Store
	config Config

	// Store.Save does not serialize writes per sender id, the generator does.
	senderLocks []sync.Mutex

	ticker   *time.Ticker
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	requestCount int64
	errorCount   int64
	savedEvents  int64
	startTime    time.Time
	mu           sync.RWMutex
}

// NewLoadGenerator creates a new LoadGenerator instance with the provided Store and configuration.
func NewLoadGenerator(store *trackerstore.Store, config Config) *LoadGenerator {
	return &LoadGenerator{
		store:       store,
		config:      config,
		senderLocks: make([]sync.Mutex, config.Conversations),
		stopChan:    make(chan struct{}),
	}
}

// Start generates load until ctx is canceled or Stop is called.
func (lg *LoadGenerator) Start(ctx context.Context) error {
	interval := time.Second / time.Duration(lg.config.Rate)
	lg.ticker = time.NewTicker(interval)
	defer lg.ticker.Stop()

	lg.mu.Lock()
	lg.startTime = time.Now()
	lg.mu.Unlock()

	log.Printf("Load generator starting with %d requests/second (interval: %v), initial goroutines: %d", lg.config.Rate, interval, runtime.NumGoroutine())

	lg.wg.Add(1)
	go lg.statsReporter(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Load generator stopping due to context cancellation")
			return ctx.Err()

		case <-lg.stopChan:
			log.Printf("Load generator stopping due to stop signal")
			return nil

		case <-lg.ticker.C:
			lg.wg.Add(1)
			go lg.executeScenario(ctx)
		}
	}
}

// Stop waits for running scenarios to finish, at most until ctx is done.
func (lg *LoadGenerator) Stop(ctx context.Context) error {
	lg.stopOnce.Do(func() { close(lg.stopChan) })

	done := make(chan struct{})
	go func() {
		lg.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		lg.logStats("Final Stats")
		return nil
	case <-ctx.Done():
		lg.logStats("Final Stats")
		return fmt.Errorf("shutdown timeout exceeded")
	}
}

// ReportStoredConversations logs how many conversations the store holds.
func (lg *LoadGenerator) ReportStoredConversations(ctx context.Context) {
	stored := 0

	for _, err := range lg.store.Keys(ctx) {
		if err != nil {
			log.Printf("Listing sender ids failed: %v", err)
			return
		}
		stored++
	}

	log.Printf("Tracker store holds %d conversations", stored)
}

func (lg *LoadGenerator) executeScenario(ctx context.Context) {
	defer lg.wg.Done()

	scenarioType := lg.selectScenario()
	senderNum := rand.Intn(lg.config.Conversations) //nolint:gosec // load generation - weak random is acceptable

	lg.senderLocks[senderNum].Lock()
	defer lg.senderLocks[senderNum].Unlock()

	opCtx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	senderID := senderIDFor(senderNum)

	var (
		newEvents int
		err       error
	)

	switch scenarioType {
	case scenarioOpen:
		newEvents, err = lg.runOpenScenario(opCtx, senderID)
	case scenarioContinue:
		newEvents, err = lg.runContinueScenario(opCtx, senderID)
	case scenarioRestart:
		newEvents, err = lg.runRestartScenario(opCtx, senderID)
	default:
		err = fmt.Errorf("unknown scenario type: %s", scenarioType)
	}

	lg.mu.Lock()
	lg.requestCount++
	lg.savedEvents += int64(newEvents)
	if err != nil {
		lg.errorCount++
		log.Printf("Scenario error (%s, %s): %v", scenarioType, senderID, err)
	}
	lg.mu.Unlock()
}

// selectScenario chooses a scenario type based on configured weights.
func (lg *LoadGenerator) selectScenario() string {
	r := rand.Intn(100) //nolint:gosec // load generation - weak random is acceptable

	switch {
	case r < lg.config.ScenarioWeights[0]:
		return scenarioOpen
	case r < lg.config.ScenarioWeights[0]+lg.config.ScenarioWeights[1]:
		return scenarioContinue
	default:
		return scenarioRestart
	}
}

// runOpenScenario greets the bot, possibly in a conversation which already exists.
func (lg *LoadGenerator) runOpenScenario(ctx context.Context, senderID string) (int, error) {
	trk, err := lg.store.GetOrCreate(ctx, senderID)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	greeting := greetings[rand.Intn(len(greetings))] //nolint:gosec // load generation - weak random is acceptable

	return lg.save(ctx, trk,
		events.BuildUserUttered(greeting, events.Intent{Name: "greet", Confidence: 0.98}, nil, now),
		events.BuildActionExecuted("utter_greet", now),
		events.BuildBotUttered("Hey! How can I help you?", nil, now),
		events.BuildActionExecuted(events.ActionListenName, now),
	)
}

// runContinueScenario books a table, filling the slots of the built-in domain.
func (lg *LoadGenerator) runContinueScenario(ctx context.Context, senderID string) (int, error) {
	trk, err := lg.store.GetOrCreate(ctx, senderID)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	cuisine := cuisines[rand.Intn(len(cuisines))] //nolint:gosec // load generation - weak random is acceptable
	partySize := float64(rand.Intn(14) + 1)       //nolint:gosec // load generation - weak random is acceptable

	return lg.save(ctx, trk,
		events.BuildUserUttered(
			fmt.Sprintf("a table for %.0f, %s food please", partySize, cuisine),
			events.Intent{Name: "request_restaurant", Confidence: 0.87},
			[]map[string]any{
				{"entity": "cuisine", "value": cuisine},
				{"entity": "party_size", "value": partySize},
			},
			now,
		),
		events.BuildSlotSet("cuisine", cuisine, now),
		events.BuildSlotSet("party_size", partySize, now),
		events.BuildSlotSet("outdoor_seating", rand.Intn(2) == 0, now), //nolint:gosec // load generation - weak random is acceptable
		events.BuildSlotSet("requested_slot", nil, now),
		events.BuildActionExecuted("utter_booking_confirmed", now),
		events.BuildActionExecuted(events.ActionListenName, now),
	)
}

// runRestartScenario restarts a stored conversation, senders without one are skipped.
func (lg *LoadGenerator) runRestartScenario(ctx context.Context, senderID string) (int, error) {
	trk, found, err := lg.store.Retrieve(ctx, senderID)
	if err != nil || !found {
		return 0, err
	}

	now := time.Now()

	return lg.save(ctx, trk,
		events.BuildUserUttered("/restart", events.Intent{Name: "restart", Confidence: 1}, nil, now),
		events.BuildRestarted(now),
		events.BuildActionExecuted(events.ActionListenName, now),
	)
}

func (lg *LoadGenerator) save(ctx context.Context, trk *tracker.DialogueStateTracker, newEvents ...events.Event) (int, error) {
	for _, e := range newEvents {
		trk.Update(e)
	}

	if err := lg.store.Save(ctx, trk); err != nil {
		return 0, err
	}

	return len(newEvents), nil
}

// senderIDFor maps a conversation number to a stable sender id.
func senderIDFor(senderNum int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("sender-%d", senderNum))).String()
}

func (lg *LoadGenerator) statsReporter(ctx context.Context) {
	defer lg.wg.Done()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-lg.stopChan:
			return
		case <-ticker.C:
			lg.logStats("Stats")
		}
	}
}

func (lg *LoadGenerator) logStats(prefix string) {
	lg.mu.RLock()
	duration := time.Since(lg.startTime)
	requests := lg.requestCount
	errors := lg.errorCount
	savedEvents := lg.savedEvents
	lg.mu.RUnlock()

	if duration <= 0 || requests == 0 {
		return
	}

	rps := float64(requests) / duration.Seconds()
	errorRate := float64(errors) / float64(requests) * 100
	log.Printf("%s: %d requests in %v (%.1f req/s), %d events saved, %d errors (%.1f%%), %d goroutines",
		prefix, requests, duration.Truncate(time.Second), rps, savedEvents, errors, errorRate, runtime.NumGoroutine())
}
