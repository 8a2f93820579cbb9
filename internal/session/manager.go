package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/actionsum/focuslens/internal/models"
	"github.com/actionsum/focuslens/internal/ports"
)

// Summary is the notification payload for a closed work session.
type Summary struct {
	Session       *models.WorkSession        `json:"session"`
	Blocks        []models.ProductivityBlock `json:"blocks"`
	FocusSessions []models.FocusSession      `json:"focus_sessions"`
}

// Manager owns the single in-progress work session.
type Manager struct {
	*Segmenter

	store    ports.SessionStore
	notifier ports.Notifier
	logger   *slog.Logger

	mu      sync.Mutex
	current []models.ActivityRecord
}

func NewManager(segmenter *Segmenter, store ports.SessionStore, notifier ports.Notifier, logger *slog.Logger) *Manager {
	if segmenter == nil {
		segmenter = NewSegmenter(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		Segmenter: segmenter,
		store:     store,
		notifier:  notifier,
		logger:    logger,
	}
}

// AddActivity appends an activity to the current session. When the idle gap since the
// previous activity exceeds IdleThreshold the current session is closed first; the closed
// session is returned (nil if none closed or it was too short).
func (m *Manager) AddActivity(ctx context.Context, activity models.ActivityRecord) *models.WorkSession {
	m.mu.Lock()
	var closed []models.ActivityRecord
	if n := len(m.current); n > 0 && activity.Timestamp-m.current[n-1].End() > IdleThreshold {
		closed = m.current
		m.current = nil
	}
	m.current = append(m.current, activity)
	m.mu.Unlock()

	if closed == nil {
		return nil
	}
	return m.finish(ctx, closed)
}

// EndSession closes the current session. It returns nil when nothing is open
// or the session was shorter than MinSessionDuration.
func (m *Manager) EndSession(ctx context.Context) *models.WorkSession {
	m.mu.Lock()
	closed := m.current
	m.current = nil
	m.mu.Unlock()

	if len(closed) == 0 {
		return nil
	}
	return m.finish(ctx, closed)
}

// Current returns a copy of the activities buffered in the open session.
func (m *Manager) Current() []models.ActivityRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ActivityRecord(nil), m.current...)
}

func (m *Manager) finish(ctx context.Context, activities []models.ActivityRecord) *models.WorkSession {
	ws, err := m.CreateWorkSession(activities)
	if err != nil {
		m.logger.Warn("failed to build work session", slog.Any("error", err))
		return nil
	}

	if ws.Duration < MinSessionDuration {
		m.logger.Debug("discarding short session",
			slog.Int64("duration_ms", ws.Duration),
			slog.Int("activities", len(activities)))
		return nil
	}

	summary := Summary{
		Session:       ws,
		Blocks:        m.ProductivityBlocks(ws, activities),
		FocusSessions: m.FocusSessions(ws, activities),
	}

	if m.store != nil {
		if err := m.store.SaveWorkSession(ctx, ws); err != nil {
			m.logger.Warn("failed to save work session", slog.String("session_id", ws.ID), slog.Any("error", err))
		}
		for i := range summary.Blocks {
			if err := m.store.SaveProductivityBlock(ctx, &summary.Blocks[i]); err != nil {
				m.logger.Warn("failed to save productivity block", slog.String("block_id", summary.Blocks[i].ID), slog.Any("error", err))
			}
		}
		for i := range summary.FocusSessions {
			if err := m.store.SaveFocusSession(ctx, &summary.FocusSessions[i]); err != nil {
				m.logger.Warn("failed to save focus session", slog.String("focus_session_id", summary.FocusSessions[i].ID), slog.Any("error", err))
			}
		}
	}

	m.logger.Info("work session closed",
		slog.String("session_id", ws.ID),
		slog.Int64("duration_ms", ws.Duration),
		slog.String("dominant_app", ws.DominantApp),
		slog.String("rating", string(ws.ProductivityRating)))

	if m.notifier != nil {
		m.notifier.Notify(ctx, ports.Notification{
			Kind:    ports.KindWorkSession,
			At:      time.UnixMilli(ws.EndTime),
			Payload: summary,
		})
	}

	return ws
}
