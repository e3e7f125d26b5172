package sitecms

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/sitecms/blob"
	"github.com/eringen/sitecms/store"
)

// eventRequest is the body of POST and PUT /api/events.
type eventRequest struct {
	Title     *store.Bilingual `json:"title"`
	Message   *store.Bilingual `json:"message"`
	Type      *string          `json:"type" validate:"omitempty,oneof=info warning success error"`
	StartDate *string          `json:"startDate"`
	EndDate   *string          `json:"endDate"`
	IsActive  *bool            `json:"isActive"`
	Link      *string          `json:"link" validate:"omitempty,max=2048"`
	Icon      *string          `json:"icon" validate:"omitempty,max=100"`
	Image     *string          `json:"image"`
	Priority  *int             `json:"priority" validate:"omitempty,min=-1000,max=1000"`
}

type clickRequest struct {
	ID string `json:"id" validate:"required"`
}

var errEndBeforeStart = badRequest("End date must not be before start date")

func (a *App) handleListEvents(c echo.Context) error {
	f := store.EventFilter{Type: store.EventType(c.QueryParam("type"))}
	if f.Type != "" && !f.Type.Valid() {
		return badRequest("type must be one of info, warning, success, error")
	}
	if active := queryBool(c, "active"); active != nil && *active {
		f.Current = true
		f.At = a.now()
	}
	events, err := a.Store.ListEvents(c.Request().Context(), f)
	if err != nil {
		return storeError(err, "Event")
	}
	return c.JSON(http.StatusOK, events)
}

func (a *App) handleGetEvent(c echo.Context) error {
	ev, err := a.Store.GetEvent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return storeError(err, "Event")
	}
	return c.JSON(http.StatusOK, ev)
}

func (a *App) handleCreateEvent(c echo.Context) error {
	var req eventRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := requireBilingual("title", req.Title); err != nil {
		return err
	}
	if err := requireBilingual("message", req.Message); err != nil {
		return err
	}
	if trimmed(req.StartDate) == "" || trimmed(req.EndDate) == "" {
		return badRequest("startDate and endDate are required")
	}
	start, err := parseDate("startDate", *req.StartDate, false)
	if err != nil {
		return err
	}
	end, err := parseDate("endDate", *req.EndDate, true)
	if err != nil {
		return err
	}
	if end.Before(start) {
		return errEndBeforeStart
	}

	ev := store.Event{
		Title:     *req.Title,
		Message:   *req.Message,
		Type:      store.EventInfo,
		StartDate: start,
		EndDate:   end,
		IsActive:  req.IsActive == nil || *req.IsActive,
		Link:      trimmed(req.Link),
		Icon:      trimmed(req.Icon),
	}
	if req.Type != nil {
		ev.Type = store.EventType(*req.Type)
	}
	if req.Priority != nil {
		ev.Priority = *req.Priority
	}
	if req.Image != nil {
		img, err := a.resolveImage("image", *req.Image, blob.FolderEvents)
		if err != nil {
			return err
		}
		ev.Image = img
	}

	created, err := a.Store.CreateEvent(c.Request().Context(), ev)
	if err != nil {
		return storeError(err, "Event")
	}
	return c.JSON(http.StatusCreated, created)
}

func (a *App) handleUpdateEvent(c echo.Context) error {
	var req eventRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := checkUpdateBilingual("title", req.Title); err != nil {
		return err
	}
	if err := checkUpdateBilingual("message", req.Message); err != nil {
		return err
	}

	ctx := c.Request().Context()
	id := c.Param("id")
	u := store.EventUpdate{
		Title:    req.Title,
		Message:  req.Message,
		IsActive: req.IsActive,
		Link:     req.Link,
		Icon:     req.Icon,
		Priority: req.Priority,
	}
	if req.Type != nil {
		t := store.EventType(*req.Type)
		u.Type = &t
	}

	if req.StartDate != nil || req.EndDate != nil {
		current, err := a.Store.GetEvent(ctx, id)
		if err != nil {
			return storeError(err, "Event")
		}
		start, end := current.StartDate, current.EndDate
		if req.StartDate != nil {
			if start, err = parseDate("startDate", *req.StartDate, false); err != nil {
				return err
			}
			u.StartDate = &start
		}
		if req.EndDate != nil {
			if end, err = parseDate("endDate", *req.EndDate, true); err != nil {
				return err
			}
			u.EndDate = &end
		}
		if end.Before(start) {
			return errEndBeforeStart
		}
	}

	if req.Image != nil {
		img, err := a.resolveImage("image", *req.Image, blob.FolderEvents)
		if err != nil {
			return err
		}
		u.Image = &img
	}

	updated, err := a.Store.UpdateEvent(ctx, id, u)
	if err != nil {
		return storeError(err, "Event")
	}
	return c.JSON(http.StatusOK, updated)
}

func (a *App) handleDeleteEvent(c echo.Context) error {
	if err := a.Store.DeleteEvent(c.Request().Context(), c.Param("id")); err != nil {
		return storeError(err, "Event")
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (a *App) handleEventClick(c echo.Context) error {
	if !a.clickLimiter.Allow(c.RealIP()) {
		return echo.NewHTTPError(http.StatusTooManyRequests, apiError{Error: "Too many requests. Try again later."})
	}
	var req clickRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	count, err := a.Store.IncrementEventClicks(c.Request().Context(), strings.TrimSpace(req.ID))
	if err != nil {
		return storeError(err, "Event")
	}
	a.Metrics.Clicks.Inc()
	a.Log.Debug("event click", zap.String("id", req.ID), zap.Int64("clickCount", count))
	return c.JSON(http.StatusOK, map[string]any{"success": true, "clickCount": count})
}
