package sitecms

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
)

// Overall connectivity states reported by /api/status.
const (
	statusConnected    = "connected"
	statusPartially    = "partially"
	statusDisconnected = "disconnected"
)

type probeResult struct {
	Connected    bool   `json:"connected"`
	ResponseTime int64  `json:"responseTime"` // milliseconds
	Error        string `json:"error,omitempty"`
}

type statusResponse struct {
	Status    string      `json:"status"`
	Database  probeResult `json:"database"`
	Storage   probeResult `json:"storage"`
	Timestamp time.Time   `json:"timestamp"`
}

// probe runs check against the status timeout. A check that does not return
// in time counts as a failure; its goroutine finishes in the background.
func (a *App) probe(ctx context.Context, check func(context.Context) error) probeResult {
	ctx, cancel := context.WithTimeout(ctx, a.Config.StatusTimeout)
	defer cancel()

	start := time.Now()
	errc := make(chan error, 1)
	go func() { errc <- check(ctx) }()

	var err error
	select {
	case err = <-errc:
	case <-ctx.Done():
		err = fmt.Errorf("timed out after %s", a.Config.StatusTimeout)
	}

	res := probeResult{Connected: err == nil, ResponseTime: time.Since(start).Milliseconds()}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

func overallStatus(db, storage probeResult) string {
	switch {
	case db.Connected && storage.Connected:
		return statusConnected
	case db.Connected || storage.Connected:
		return statusPartially
	default:
		return statusDisconnected
	}
}

func (a *App) handleStatus(c echo.Context) error {
	ctx := c.Request().Context()

	var resp statusResponse
	var g errgroup.Group
	g.Go(func() error {
		resp.Database = a.probe(ctx, a.Store.Ping)
		return nil
	})
	g.Go(func() error {
		resp.Storage = a.probe(ctx, a.Storage.Probe)
		return nil
	})
	_ = g.Wait()

	resp.Status = overallStatus(resp.Database, resp.Storage)
	resp.Timestamp = a.now().UTC()

	code := http.StatusOK
	if resp.Status == statusDisconnected {
		code = http.StatusServiceUnavailable
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.JSON(code, resp)
}
