package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// EventUpdate lists the fields a partial update changes. Nil fields are left
// untouched.
type EventUpdate struct {
	Title     *Bilingual
	Message   *Bilingual
	Type      *EventType
	StartDate *time.Time
	EndDate   *time.Time
	IsActive  *bool
	Link      *string
	Icon      *string
	Image     *string
	Priority  *int
}

func (u EventUpdate) patch() Patch {
	var p Patch
	p.setBilingual("title", u.Title)
	p.setBilingual("message", u.Message)
	if u.Type != nil {
		p.set("type", string(*u.Type))
	}
	if u.StartDate != nil {
		p.set("start_date", formatTime(*u.StartDate))
	}
	if u.EndDate != nil {
		p.set("end_date", formatTime(*u.EndDate))
	}
	p.setBool("is_active", u.IsActive)
	p.setString("link", u.Link)
	p.setString("icon", u.Icon)
	p.setString("image", u.Image)
	if u.Priority != nil {
		p.set("priority", *u.Priority)
	}
	return p
}

// ListEvents returns events ordered by priority, then by start date with the
// most recent first.
func (s *Store) ListEvents(ctx context.Context, f EventFilter) ([]Event, error) {
	var (
		where []string
		args  []any
	)
	if f.Current {
		at := f.At
		if at.IsZero() {
			at = s.now()
		}
		ts := formatTime(at)
		where = append(where, "is_active = 1", "start_date <= ?", "end_date >= ?")
		args = append(args, ts, ts)
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}

	q := "SELECT " + eventColumns + " FROM events"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY priority DESC, start_date DESC"

	events, err := queryAll(ctx, s.exec, scanEvent, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// GetEvent returns an event by id or ErrNotFound.
func (s *Store) GetEvent(ctx context.Context, id string) (Event, error) {
	e, err := queryOne(ctx, s.exec, scanEvent, "SELECT "+eventColumns+" FROM events WHERE id = ?", id)
	if err != nil {
		return Event{}, fmt.Errorf("get event %s: %w", id, err)
	}
	return e, nil
}

// CreateEvent inserts e with a generated id, zero clicks and fresh timestamps.
func (s *Store) CreateEvent(ctx context.Context, e Event) (Event, error) {
	now := s.now().UTC()
	e.ID = NewID(PrefixEvent, now)
	e.Title = e.Title.Normalize()
	e.Message = e.Message.Normalize()
	if e.Type == "" {
		e.Type = EventInfo
	}

	_, err := s.exec.Exec(ctx, `INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title.EN, e.Title.FA, e.Message.EN, e.Message.FA, string(e.Type),
		formatTime(e.StartDate), formatTime(e.EndDate), boolToInt(e.IsActive),
		strings.TrimSpace(e.Link), strings.TrimSpace(e.Icon), strings.TrimSpace(e.Image),
		e.Priority, 0, formatTime(now), formatTime(now))
	if err != nil {
		return Event{}, fmt.Errorf("create event: %w", err)
	}
	return s.GetEvent(ctx, e.ID)
}

// UpdateEvent applies u and returns the updated event.
func (s *Store) UpdateEvent(ctx context.Context, id string, u EventUpdate) (Event, error) {
	p := u.patch()
	q, args := p.updateSQL("events", id, formatTime(s.now()))
	if err := execAffecting(ctx, s.exec, q, args...); err != nil {
		return Event{}, fmt.Errorf("update event %s: %w", id, err)
	}
	return s.GetEvent(ctx, id)
}

// DeleteEvent removes an event.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	if err := execAffecting(ctx, s.exec, "DELETE FROM events WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete event %s: %w", id, err)
	}
	return nil
}

// IncrementEventClicks adds one to the click counter in a single statement
// and returns the new count.
func (s *Store) IncrementEventClicks(ctx context.Context, id string) (int64, error) {
	count, err := queryOne(ctx, s.exec, func(sc scanner) (int64, error) {
		var n int64
		err := sc.Scan(&n)
		return n, err
	}, "UPDATE events SET click_count = click_count + 1 WHERE id = ? RETURNING click_count", id)
	if err != nil {
		return 0, fmt.Errorf("increment clicks %s: %w", id, err)
	}
	return count, nil
}
