package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crime-etl/internal/dashboard"
	"github.com/sells-group/crime-etl/internal/model"
)

type staticIncidents []model.IncidentFact

func (s staticIncidents) LoadIncidents(context.Context) ([]model.IncidentFact, error) {
	return s, nil
}

// getFreePort returns a free TCP port on localhost.
func getFreePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestServeUntilDone_Lifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rows := staticIncidents{{ID: "1", PrimaryType: "THEFT"}, {ID: "2", PrimaryType: "THEFT"}}
	port := getFreePort(t)
	srv := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", port),
		Handler:           dashboard.NewServer(rows, time.Minute, nil).Router(),
		ReadHeaderTimeout: time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- serveUntilDone(ctx, srv) }()

	var resp *http.Response
	var err error
	for i := 0; i < 50; i++ {
		resp, err = http.Get(fmt.Sprintf("http://127.0.0.1:%d/api/summary", port))
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.NoError(t, err, "server did not become ready in time")
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var s dashboard.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	assert.Equal(t, 2, s.TotalCrimes)
	assert.Equal(t, "THEFT", s.MostFrequentType)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServeUntilDone_ListenError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close() //nolint:errcheck

	srv := &http.Server{Addr: l.Addr().String(), ReadHeaderTimeout: time.Second}
	err = serveUntilDone(context.Background(), srv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server listen")
}

type countingInvalidator struct{ n atomic.Int32 }

func (c *countingInvalidator) Invalidate() { c.n.Add(1) }

func TestReloadOnSignal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal)
	c := &countingInvalidator{}

	done := make(chan struct{})
	go func() {
		reloadOnSignal(ctx, sig, c)
		close(done)
	}()

	sig <- syscall.SIGHUP
	sig <- syscall.SIGHUP
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("reloadOnSignal did not return after cancel")
	}
	assert.Equal(t, int32(2), c.n.Load())
}

func TestReloadOnSignal_RefreshesDashboard(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &growingIncidents{rows: []model.IncidentFact{{ID: "1", PrimaryType: "THEFT"}}}
	d := dashboard.NewServer(src, time.Hour, nil)
	sig := make(chan os.Signal)
	go reloadOnSignal(ctx, sig, d)

	assert.Equal(t, 1, summaryTotal(t, d))

	src.rows = append(src.rows, model.IncidentFact{ID: "2", PrimaryType: "BATTERY"})
	assert.Equal(t, 1, summaryTotal(t, d), "cached within TTL")

	sig <- syscall.SIGHUP
	sig <- syscall.SIGHUP // second send returns only after the first was handled
	assert.Equal(t, 2, summaryTotal(t, d))
}

type growingIncidents struct{ rows []model.IncidentFact }

func (g *growingIncidents) LoadIncidents(context.Context) ([]model.IncidentFact, error) {
	return append([]model.IncidentFact(nil), g.rows...), nil
}

func summaryTotal(t *testing.T, d *dashboard.Server) int {
	t.Helper()
	rec := httptest.NewRecorder()
	d.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var s dashboard.Summary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&s))
	return s.TotalCrimes
}
