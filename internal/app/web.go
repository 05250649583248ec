package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/sailing_computer/internal/bus"
	"github.com/relabs-tech/sailing_computer/internal/config"
	"github.com/relabs-tech/sailing_computer/internal/metrics"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// telemetry keeps the last payload of every watched topic.
type telemetry struct {
	mu     sync.RWMutex
	latest map[string]json.RawMessage
}

func newTelemetry() *telemetry {
	return &telemetry{latest: make(map[string]json.RawMessage)}
}

func (t *telemetry) set(name string, payload []byte) {
	if !json.Valid(payload) {
		log.Printf("web: dropping invalid %s payload", name)
		return
	}
	cp := append(json.RawMessage(nil), payload...)
	t.mu.Lock()
	t.latest[name] = cp
	t.mu.Unlock()
}

// snapshot returns every latest payload as one JSON object.
func (t *telemetry) snapshot() ([]byte, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.latest) == 0 {
		return nil, false
	}
	b, err := json.Marshal(t.latest)
	if err != nil {
		log.Printf("web: snapshot marshal error: %v", err)
		return nil, false
	}
	return b, true
}

// webTopics maps snapshot keys to the configured topics.
func webTopics(cfg *config.Config) map[string]string {
	return map[string]string{
		"attitude":      cfg.TopicAttitude,
		"wx_attitude":   cfg.TopicWXAttitude,
		"wx_motion":     cfg.TopicWXMotion,
		"wind":          cfg.TopicWind,
		"gps_raw":       cfg.TopicGPSRaw,
		"gps_filtered":  cfg.TopicGPSFiltered,
		"reference":     cfg.TopicReference,
		"actuators":     cfg.TopicActuators,
		"guidance":      cfg.TopicGuidance,
		"race_position": cfg.TopicRacePosition,
		"notice":        cfg.TopicNotice,
	}
}

// RunWeb serves the status API, the telemetry websocket and the static
// files in ./web until ctx is done.
func RunWeb(ctx context.Context) error {
	cfg := config.Get()

	client, err := bus.Connect(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Close()

	tel := newTelemetry()
	for name, topic := range webTopics(cfg) {
		if err := client.Subscribe(topic, func(b []byte) { tel.set(name, b) }); err != nil {
			return err
		}
	}

	collector, err := metrics.NewCollector(nil)
	if err != nil {
		return err
	}

	static := ""
	if st, err := os.Stat("web"); err == nil && st.IsDir() {
		static = "web"
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler: newWebHandler(tel, cfg.WebPushInterval, collector.Handler(), static),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("web server listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func newWebHandler(tel *telemetry, push time.Duration, metricsHandler http.Handler, static string) http.Handler {
	mux := http.NewServeMux()

	// JSON API endpoint: latest value of every topic
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		b, ok := tel.snapshot()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(b)
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveTelemetryWS(w, r, tel, push)
	})

	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}
	if static != "" {
		mux.Handle("/", http.FileServer(http.Dir(static)))
	}
	return mux
}

// serveTelemetryWS pushes a snapshot every push interval until the client
// goes away.
func serveTelemetryWS(w http.ResponseWriter, r *http.Request, tel *telemetry, push time.Duration) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	// the read side only exists to notice the close frame
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(push)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			b, ok := tel.snapshot()
			if !ok {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(push + time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				log.Printf("web: websocket write error: %v", err)
				return
			}
		}
	}
}
