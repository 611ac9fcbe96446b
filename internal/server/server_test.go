package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamantos/aide/internal/events"
	"github.com/adamantos/aide/internal/orchestrator"
)

func newTestServer(t *testing.T) (*Server, *orchestrator.Registry, *events.Bus) {
	t.Helper()

	bus := events.NewBus()
	registry := orchestrator.NewRegistry()
	manager := orchestrator.New(orchestrator.Config{
		MaxConcurrent: 2,
		Store:         orchestrator.NewMemoryStore(),
		Registry:      registry,
		Events:        events.NewManager(bus, zerolog.Nop()),
		Log:           zerolog.Nop(),
	})
	t.Cleanup(manager.Stop)

	s := New(Config{
		Log:     zerolog.Nop(),
		Port:    0,
		Manager: manager,
		Bus:     bus,
	})
	return s, registry, bus
}

func TestServer_Health(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(0), body["running_jobs"])
}

func TestServer_JobRoutesAreWired(t *testing.T) {
	s, registry, _ := newTestServer(t)
	registry.Register(orchestrator.JobTypeEnrichment, orchestrator.HandlerFunc(
		func(ctx context.Context, job *orchestrator.Job) (map[string]interface{}, error) {
			return nil, nil
		}))

	body, _ := json.Marshal(map[string]interface{}{
		"type":    "enrichment",
		"payload": map[string]interface{}{"records": []interface{}{map[string]interface{}{"symbol": "NOK"}}},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/jobs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["job_id"])

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/queue/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_EventStreamDeliversEvents(t *testing.T) {
	s, _, bus := newTestServer(t)

	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events/stream?types=JOB_COMPLETED", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// Emit until the stream handler has subscribed and the event arrives.
	stopEmitting := make(chan struct{})
	defer close(stopEmitting)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stopEmitting:
				return
			case <-ticker.C:
				bus.Emit(events.JobCompleted, "orchestrator", map[string]interface{}{"job_id": "job-1"})
			}
		}
	}()

	reader := bufio.NewReader(resp.Body)
	var eventLine, dataLine string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "event: ") {
			eventLine = line
		}
		if strings.HasPrefix(line, "data: ") {
			dataLine = line
			break
		}
	}

	assert.Equal(t, "event: JOB_COMPLETED", eventLine)

	var event events.Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(dataLine, "data: ")), &event))
	assert.Equal(t, events.JobCompleted, event.Type)
	assert.Equal(t, "job-1", event.Data["job_id"])
}

func TestParseTypesFilter(t *testing.T) {
	t.Run("empty allows all", func(t *testing.T) {
		assert.Nil(t, parseTypesFilter(""))
	})

	t.Run("comma separated", func(t *testing.T) {
		allowed := parseTypesFilter("JOB_COMPLETED, JOB_FAILED")
		assert.True(t, allowed[events.JobCompleted])
		assert.True(t, allowed[events.JobFailed])
		assert.False(t, allowed[events.JobStarted])
	})
}

func TestSubscribeJobEvents_FilterAndUnsubscribe(t *testing.T) {
	bus := events.NewBus()
	ch := make(chan *events.Event, 10)

	unsubscribe := subscribeJobEvents(bus, map[events.EventType]bool{events.JobFailed: true}, ch, zerolog.Nop())

	bus.Emit(events.JobCompleted, "orchestrator", nil)
	bus.Emit(events.JobFailed, "orchestrator", nil)
	require.Len(t, ch, 1)
	assert.Equal(t, events.JobFailed, (<-ch).Type)

	unsubscribe()
	bus.Emit(events.JobFailed, "orchestrator", nil)
	assert.Empty(t, ch)
}
