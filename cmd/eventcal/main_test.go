package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcal/internal/config"
	"eventcal/internal/ics"
)

func TestICSSources(t *testing.T) {
	conf := config.DefaultConfig()
	conf.ICS = []config.ICSConfig{
		{URL: "https://a.example/cal.ics", ID: "club"},
		{URL: "https://b.example/cal.ics", Name: "library"},
		{URL: ""},
		{URL: "https://c.example/cal.ics"},
	}

	assert.Equal(t, []ics.Source{
		{ID: "club", URL: "https://a.example/cal.ics"},
		{ID: "library", URL: "https://b.example/cal.ics"},
		{ID: "ics4", URL: "https://c.example/cal.ics"},
	}, icsSources(conf))
}

func TestWaitHealthy(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, waitHealthy(context.Background(), srv.URL, 5*time.Second))
	assert.Equal(t, int32(3), calls.Load())
}

func TestWaitHealthyTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	assert.Error(t, waitHealthy(context.Background(), srv.URL, 200*time.Millisecond))
}
