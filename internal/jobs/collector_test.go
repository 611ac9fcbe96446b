package jobs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamantos/aide/internal/orchestrator"
)

func TestCollector_FetchesAllSymbols(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		symbol := r.URL.Query().Get("symbol")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"symbol": symbol,
			"price":  12.34,
		})
	}))
	defer srv.Close()

	collector := NewCollector(srv.URL, zerolog.Nop())
	job := &orchestrator.Job{
		ID:   "collect-1",
		Type: orchestrator.JobTypeDataCollection,
		Payload: map[string]interface{}{
			"symbols": []interface{}{"NOK", "AAPL"},
		},
	}

	result, err := collector.Handle(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 2, result["collected"])

	quotes := result["quotes"].(map[string]interface{})
	require.Len(t, quotes, 2)
	nok := quotes["NOK"].(map[string]interface{})
	assert.Equal(t, "NOK", nok["symbol"])
	assert.Equal(t, 12.34, nok["price"])
}

func TestCollector_AnySymbolFailureFailsJob(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") == "BAD" {
			http.Error(w, "no such symbol", http.StatusNotFound)
			return
		}
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]interface{}{"price": 1.0})
	}))
	defer srv.Close()

	collector := NewCollector(srv.URL, zerolog.Nop())
	job := &orchestrator.Job{
		Payload: map[string]interface{}{
			"symbols": []string{"GOOD", "BAD", "NEVER"},
		},
	}

	_, err := collector.Handle(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BAD")
	assert.Equal(t, int32(1), calls.Load(), "collection stops at the first failure")
}

func TestCollector_EmptySymbolList(t *testing.T) {
	collector := NewCollector("http://unused", zerolog.Nop())

	_, err := collector.Handle(context.Background(), &orchestrator.Job{Payload: map[string]interface{}{}})
	assert.Error(t, err)
}

func TestCollector_StopsOnCancelledContext(t *testing.T) {
	collector := NewCollector("http://unused", zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := collector.Handle(ctx, &orchestrator.Job{
		Payload: map[string]interface{}{
			"symbols": []string{"NOK"},
		},
	})
	assert.ErrorIs(t, err, context.Canceled)
}
