package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduschedule/eduschedule-api/internal/models"
	"github.com/eduschedule/eduschedule-api/internal/schedule"
	"github.com/eduschedule/eduschedule-api/internal/service"
)

type stubEventRepo struct {
	events map[string]models.Event
}

func (s *stubEventRepo) List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error) {
	var out []models.Event
	for _, ev := range s.events {
		out = append(out, ev)
	}
	return out, len(out), nil
}

func (s *stubEventRepo) FindByID(ctx context.Context, id string) (*models.Event, error) {
	if ev, ok := s.events[id]; ok {
		return &ev, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubEventRepo) ListByClassroom(ctx context.Context, classroomID, excludeEventID string) ([]models.Event, error) {
	var out []models.Event
	for _, ev := range s.events {
		if ev.ClassroomID != classroomID {
			continue
		}
		if excludeEventID != "" && ev.ID == excludeEventID {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (s *stubEventRepo) ListByClassroomTx(ctx context.Context, tx *sqlx.Tx, classroomID, excludeEventID string) ([]models.Event, error) {
	return s.ListByClassroom(ctx, classroomID, excludeEventID)
}

func (s *stubEventRepo) InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

func (s *stubEventRepo) LockClassroom(ctx context.Context, tx *sqlx.Tx, classroomID string) error {
	return nil
}

func (s *stubEventRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, ev *models.Event) error {
	if ev.ID == "" {
		ev.ID = "created"
	}
	s.events[ev.ID] = *ev
	return nil
}

func (s *stubEventRepo) UpdateTx(ctx context.Context, tx *sqlx.Tx, ev *models.Event) error {
	s.events[ev.ID] = *ev
	return nil
}

func (s *stubEventRepo) AppendExcludedDate(ctx context.Context, id, isoDate string) error {
	ev := s.events[id]
	ev.ExcludedDates = append(ev.ExcludedDates, isoDate)
	s.events[id] = ev
	return nil
}

func (s *stubEventRepo) Delete(ctx context.Context, id string) error {
	delete(s.events, id)
	return nil
}

func newEventHandler() (*EventHandler, *stubEventRepo) {
	repo := &stubEventRepo{events: map[string]models.Event{
		"evt-b": {
			ID:             "evt-b",
			Name:           "Calculus I",
			ClassroomID:    "room-2",
			CourseID:       "course-1",
			StartTime:      "10:00:00",
			EndTime:        "11:00:00",
			StartDate:      time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
			EndDate:        time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC),
			RepeatInterval: models.RepeatDaily,
		},
	}}
	svc := service.NewEventService(repo, nil, schedule.NewValidator(nil), nil, nil, nil)
	return NewEventHandler(svc), repo
}

func TestEventHandlerCreateConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newEventHandler()

	body := `{"name":"Clash","classroom_id":"room-2","course_id":"course-2","start_time":"10:30:00","end_time":"11:30:00","start_date":"2024-04-01","end_date":"2024-04-30","repeat_interval":"daily"}`
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)

	require.Equal(t, http.StatusConflict, w.Code)
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "ROOM_CONFLICT", envelope.Error.Code)
	assert.Contains(t, envelope.Error.Message, "Calculus I")
}

func TestEventHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, repo := newEventHandler()

	body := `{"name":"Linear Algebra","classroom_id":"room-2","course_id":"course-2","start_time":"11:00:00","end_time":"12:00:00","start_date":"2024-04-01","end_date":"2024-04-30","repeat_interval":"daily"}`
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, repo.events, 2)
}

func TestEventHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newEventHandler()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/events/missing", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Get(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestEventHandlerCancelOccurrence(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, repo := newEventHandler()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/events/evt-b/occurrences/2024-04-11", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "evt-b"}, {Key: "date", Value: "2024-04-11"}}

	handler.CancelOccurrence(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, repo.events["evt-b"].ExcludedDates.Contains("2024-04-11"))
}
