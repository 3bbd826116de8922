package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/shenikar/fireguard_dispatch/internal/config"
	"github.com/shenikar/fireguard_dispatch/internal/events"
	"github.com/shenikar/fireguard_dispatch/internal/models"
	"github.com/shenikar/fireguard_dispatch/internal/service/mocks"
)

type testDeps struct {
	incidents *mocks.MockIncidentService
	resources *mocks.MockResourceService
	dispatch  *mocks.MockDispatchService
	locations *mocks.MockLocationService
	broker    *events.Broker
	router    *gin.Engine
}

var (
	dispatcherHeaders = map[string]string{
		"X-API-Key":    "test-api-key",
		"X-Actor-ID":   "dispatcher-1",
		"X-Actor-Role": "dispatcher",
	}
	reporterHeaders = map[string]string{
		"X-API-Key":    "test-api-key",
		"X-Actor-ID":   "citizen-7",
		"X-Actor-Role": "reporter",
	}
)

// newTestHandler создает Handler с мокированными сервисами и настоящим брокером событий
func newTestHandler(t *testing.T) *testDeps {
	return newTestHandlerWithRetention(t, 1000)
}

func newTestHandlerWithRetention(t *testing.T, retention int) *testDeps {
	ctrl := gomock.NewController(t)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	deps := &testDeps{
		incidents: mocks.NewMockIncidentService(ctrl),
		resources: mocks.NewMockResourceService(ctrl),
		dispatch:  mocks.NewMockDispatchService(ctrl),
		locations: mocks.NewMockLocationService(ctrl),
		broker:    events.NewBroker(events.NewMemoryLog(retention), logger, nil, 16),
	}

	cfg := &config.Config{APIKeys: []string{"test-api-key"}}
	handler := NewHandler(deps.incidents, deps.resources, deps.dispatch, deps.locations, deps.broker, logger, cfg)

	// Настройка Gin роутера для тестов
	gin.SetMode(gin.TestMode)
	deps.router = gin.New()
	api := deps.router.Group("/api/v1")
	handler.RegisterRoutes(api)

	return deps
}

// makeRequest - вспомогательная функция для выполнения HTTP-запросов
func makeRequest(router *gin.Engine, method, url string, body io.Reader, headers ...map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range headers {
		for key, value := range h {
			req.Header.Set(key, value)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func floatPtr(v float64) *float64 { return &v }

func sampleIncident(status models.IncidentStatus, version int64) *models.Incident {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.Incident{
		ID:         uuid.New(),
		Title:      "Kitchen fire",
		Severity:   models.SeverityHigh,
		Status:     status,
		Latitude:   55.75,
		Longitude:  37.61,
		ReportedBy: "citizen-7",
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    version,
	}
}

func TestHealthCheck_NoAuth(t *testing.T) {
	deps := newTestHandler(t)

	w := makeRequest(deps.router, http.MethodGet, "/api/v1/system/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{name: "missing key", headers: map[string]string{"X-Actor-ID": "d", "X-Actor-Role": "dispatcher"}, want: http.StatusUnauthorized},
		{name: "wrong key", headers: map[string]string{"X-API-Key": "nope", "X-Actor-ID": "d", "X-Actor-Role": "dispatcher"}, want: http.StatusUnauthorized},
		{name: "missing actor", headers: map[string]string{"X-API-Key": "test-api-key"}, want: http.StatusUnauthorized},
		{name: "unknown role", headers: map[string]string{"X-API-Key": "test-api-key", "X-Actor-ID": "d", "X-Actor-Role": "mayor"}, want: http.StatusUnauthorized},
		{name: "bearer token", headers: map[string]string{"Authorization": "Bearer test-api-key", "X-Actor-ID": "d", "X-Actor-Role": "dispatcher"}, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestHandler(t)
			if tt.want == http.StatusOK {
				deps.dispatch.EXPECT().GetStats(gomock.Any()).Return(&models.IncidentStats{ByStatus: map[models.IncidentStatus]int{}}, nil)
			}

			w := makeRequest(deps.router, http.MethodGet, "/api/v1/incidents/stats", nil, tt.headers)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestCreateIncident_Success(t *testing.T) {
	deps := newTestHandler(t)
	incident := sampleIncident(models.StatusReported, 1)
	reqBody := CreateIncidentRequest{
		Title:     incident.Title,
		Severity:  "high",
		Latitude:  floatPtr(incident.Latitude),
		Longitude: floatPtr(incident.Longitude),
	}

	deps.incidents.EXPECT().
		CreateIncident(gomock.Any(), models.Actor{ID: "citizen-7", Role: models.RoleReporter}, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ models.Actor, report models.IncidentReport) (*models.Incident, error) {
			assert.Equal(t, "Kitchen fire", report.Title)
			assert.Equal(t, models.SeverityHigh, report.Severity)
			return incident, nil
		})

	w := makeRequest(deps.router, http.MethodPost, "/api/v1/incidents", jsonBody(t, reqBody), reporterHeaders)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, incident.ID, resp.ID)
	assert.Equal(t, "reported", resp.Status)
	assert.Equal(t, int64(1), resp.Version)
}

func TestCreateIncident_BadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "broken json", body: `{"title": "x"`},
		{name: "missing title", body: `{"severity":"low","latitude":1,"longitude":2}`},
		{name: "unknown severity", body: `{"title":"x","severity":"apocalyptic","latitude":1,"longitude":2}`},
		{name: "latitude out of range", body: `{"title":"x","severity":"low","latitude":91,"longitude":2}`},
		{name: "missing coordinates", body: `{"title":"x","severity":"low"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestHandler(t)
			deps.incidents.EXPECT().CreateIncident(gomock.Any(), gomock.Any(), gomock.Any()).Times(0) // Сервис не должен вызываться

			w := makeRequest(deps.router, http.MethodPost, "/api/v1/incidents", strings.NewReader(tt.body), reporterHeaders)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCreateIncident_ZeroCoordinatesAccepted(t *testing.T) {
	deps := newTestHandler(t)
	deps.incidents.EXPECT().CreateIncident(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(sampleIncident(models.StatusReported, 1), nil)

	w := makeRequest(deps.router, http.MethodPost, "/api/v1/incidents",
		strings.NewReader(`{"title":"Null island","severity":"low","latitude":0,"longitude":0}`), reporterHeaders)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestListIncidents_PassesFilter(t *testing.T) {
	deps := newTestHandler(t)
	first, second := sampleIncident(models.StatusReported, 1), sampleIncident(models.StatusReported, 3)

	deps.incidents.EXPECT().
		ListIncidents(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, f models.IncidentFilter) ([]*models.Incident, error) {
			assert.Equal(t, models.StatusReported, f.Status)
			assert.Equal(t, models.SeverityHigh, f.Severity)
			assert.Equal(t, 2, f.Page)
			assert.Equal(t, 5, f.PageSize)
			assert.Equal(t, 2026, f.From.Year())
			assert.True(t, f.To.IsZero())
			return []*models.Incident{first, second}, nil
		})

	w := makeRequest(deps.router, http.MethodGet,
		"/api/v1/incidents?status=reported&severity=high&page=2&pageSize=5&from=2026-01-01T00:00:00Z", nil, dispatcherHeaders)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

func TestListIncidents_InvalidTime(t *testing.T) {
	deps := newTestHandler(t)
	deps.incidents.EXPECT().ListIncidents(gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(deps.router, http.MethodGet, "/api/v1/incidents?to=yesterday", nil, dispatcherHeaders)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid to time")
}

func TestGetIncident(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		deps := newTestHandler(t)
		id := uuid.New()
		deps.incidents.EXPECT().GetIncident(gomock.Any(), id).Return(nil, fmt.Errorf("incident service: %w", models.ErrNotFound))

		w := makeRequest(deps.router, http.MethodGet, "/api/v1/incidents/"+id.String(), nil, dispatcherHeaders)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		deps := newTestHandler(t)
		deps.incidents.EXPECT().GetIncident(gomock.Any(), gomock.Any()).Times(0)

		w := makeRequest(deps.router, http.MethodGet, "/api/v1/incidents/not-a-uuid", nil, dispatcherHeaders)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid incident ID")
	})
}

func TestAssignResource_Success(t *testing.T) {
	deps := newTestHandler(t)
	incident := sampleIncident(models.StatusDispatched, 2)
	resourceID := uuid.New()
	incident.AssignedResource = &resourceID
	resource := &models.Resource{ID: resourceID, Name: "Engine 7", Type: "engine", Status: models.ResourceAssigned, Version: 2}

	deps.dispatch.EXPECT().
		AssignResource(gomock.Any(), models.Actor{ID: "dispatcher-1", Role: models.RoleDispatcher}, incident.ID, resourceID).
		Return(incident, resource, nil)

	w := makeRequest(deps.router, http.MethodPost, "/api/v1/incidents/"+incident.ID.String()+"/assign",
		jsonBody(t, AssignRequest{ResourceID: resourceID}), dispatcherHeaders)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp DispatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "dispatched", resp.Incident.Status)
	require.NotNil(t, resp.Incident.AssignedResource)
	assert.Equal(t, resourceID, *resp.Incident.AssignedResource)
	assert.Equal(t, "assigned", resp.Resource.Status)
}

func TestDispatchErrors_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "conflict", err: models.ErrConflict, want: http.StatusConflict},
		{name: "validation", err: models.ErrValidation, want: http.StatusBadRequest},
		{name: "forbidden", err: models.ErrForbidden, want: http.StatusForbidden},
		{name: "not found", err: models.ErrNotFound, want: http.StatusNotFound},
		{name: "invalid transition", err: models.ErrInvalidTransition, want: http.StatusUnprocessableEntity},
		{name: "storage failure", err: fmt.Errorf("connection reset"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestHandler(t)
			deps.dispatch.EXPECT().AssignResource(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return(nil, nil, fmt.Errorf("dispatch service: could not assign: %w", tt.err))

			w := makeRequest(deps.router, http.MethodPost, "/api/v1/incidents/"+uuid.NewString()+"/assign",
				jsonBody(t, AssignRequest{ResourceID: uuid.New()}), dispatcherHeaders)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusInternalServerError {
				assert.NotContains(t, w.Body.String(), "connection reset", "internal details must not leak")
			}
		})
	}
}

func TestReleaseResource(t *testing.T) {
	deps := newTestHandler(t)
	incident := sampleIncident(models.StatusReported, 4)
	resource := &models.Resource{ID: uuid.New(), Name: "Engine 7", Type: "engine", Status: models.ResourceAvailable, Version: 3}
	deps.dispatch.EXPECT().Release(gomock.Any(), gomock.Any(), incident.ID).Return(incident, resource, nil)

	w := makeRequest(deps.router, http.MethodPost, "/api/v1/incidents/"+incident.ID.String()+"/release", nil, dispatcherHeaders)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp DispatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "reported", resp.Incident.Status)
	assert.Nil(t, resp.Incident.AssignedResource)
	assert.Equal(t, "available", resp.Resource.Status)
}

func TestUpdateIncidentStatus(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		deps := newTestHandler(t)
		incident := sampleIncident(models.StatusResolved, 5)
		deps.dispatch.EXPECT().
			UpdateIncidentStatus(gomock.Any(), gomock.Any(), incident.ID, models.StatusResolved, int64(4)).
			Return(incident, nil)

		w := makeRequest(deps.router, http.MethodPatch, "/api/v1/incidents/"+incident.ID.String()+"/status",
			jsonBody(t, UpdateStatusRequest{Status: "resolved", ExpectedVersion: 4}), dispatcherHeaders)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"resolved"`)
	})

	t.Run("invalid transition", func(t *testing.T) {
		deps := newTestHandler(t)
		deps.dispatch.EXPECT().UpdateIncidentStatus(gomock.Any(), gomock.Any(), gomock.Any(), models.StatusReported, int64(6)).
			Return(nil, fmt.Errorf("%w: resolved -> reported", models.ErrInvalidTransition))

		w := makeRequest(deps.router, http.MethodPatch, "/api/v1/incidents/"+uuid.NewString()+"/status",
			jsonBody(t, UpdateStatusRequest{Status: "reported", ExpectedVersion: 6}), dispatcherHeaders)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("missing expected version", func(t *testing.T) {
		deps := newTestHandler(t)
		deps.dispatch.EXPECT().UpdateIncidentStatus(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		w := makeRequest(deps.router, http.MethodPatch, "/api/v1/incidents/"+uuid.NewString()+"/status",
			strings.NewReader(`{"status":"en_route"}`), dispatcherHeaders)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListAssignmentsAndStats(t *testing.T) {
	deps := newTestHandler(t)
	incidentID := uuid.New()
	done := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	deps.dispatch.EXPECT().ListAssignments(gomock.Any(), incidentID).Return([]*models.Assignment{
		{ID: uuid.New(), IncidentID: incidentID, ResourceID: uuid.New(), AssignedBy: "dispatcher-1", AssignedAt: done.Add(-time.Hour), CompletedAt: &done},
		{ID: uuid.New(), IncidentID: incidentID, ResourceID: uuid.New(), AssignedBy: "dispatcher-1", AssignedAt: done},
	}, nil)
	deps.dispatch.EXPECT().GetStats(gomock.Any()).Return(&models.IncidentStats{
		Total:          3,
		ByStatus:       map[models.IncidentStatus]int{models.StatusReported: 2, models.StatusArrived: 1},
		AvailableUnits: 4,
	}, nil)

	w := makeRequest(deps.router, http.MethodGet, "/api/v1/incidents/"+incidentID.String()+"/assignments", nil, dispatcherHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	var assignments []AssignmentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &assignments))
	require.Len(t, assignments, 2)
	assert.NotNil(t, assignments[0].CompletedAt)
	assert.Nil(t, assignments[1].CompletedAt)

	w = makeRequest(deps.router, http.MethodGet, "/api/v1/incidents/stats", nil, dispatcherHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	var stats StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByStatus["reported"])
	assert.Equal(t, 4, stats.AvailableUnits)
}

func TestResources(t *testing.T) {
	t.Run("register", func(t *testing.T) {
		deps := newTestHandler(t)
		deps.resources.EXPECT().RegisterResource(gomock.Any(), gomock.Any(), "Engine 7", "engine").
			Return(&models.Resource{ID: uuid.New(), Name: "Engine 7", Type: "engine", Status: models.ResourceAvailable, Version: 1}, nil)

		w := makeRequest(deps.router, http.MethodPost, "/api/v1/resources",
			jsonBody(t, CreateResourceRequest{Name: "Engine 7", Type: "engine"}), dispatcherHeaders)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"available"`)
	})

	t.Run("register forbidden for reporters", func(t *testing.T) {
		deps := newTestHandler(t)
		deps.resources.EXPECT().RegisterResource(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, models.ErrForbidden)

		w := makeRequest(deps.router, http.MethodPost, "/api/v1/resources",
			jsonBody(t, CreateResourceRequest{Name: "Engine 7", Type: "engine"}), reporterHeaders)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("available is not shadowed by id route", func(t *testing.T) {
		deps := newTestHandler(t)
		deps.resources.EXPECT().ListAvailable(gomock.Any(), "ladder").Return([]*models.Resource{}, nil)

		w := makeRequest(deps.router, http.MethodGet, "/api/v1/resources/available?type=ladder", nil, dispatcherHeaders)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("availability conflict", func(t *testing.T) {
		deps := newTestHandler(t)
		id := uuid.New()
		deps.resources.EXPECT().SetAvailability(gomock.Any(), gomock.Any(), id, models.ResourceMaintenance, int64(2)).
			Return(nil, models.ErrConflict)

		w := makeRequest(deps.router, http.MethodPatch, "/api/v1/resources/"+id.String()+"/availability",
			jsonBody(t, AvailabilityRequest{Status: "maintenance", ExpectedVersion: 2}), dispatcherHeaders)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "refresh and try again")
	})
}

func TestIngestLocation(t *testing.T) {
	unitID := uuid.New()
	observed := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)
	unitHeaders := map[string]string{
		"X-API-Key":    "test-api-key",
		"X-Actor-ID":   unitID.String(),
		"X-Actor-Role": "field_unit",
	}
	body := func() io.Reader {
		return jsonBody(t, LocationRequest{UnitID: unitID, Latitude: floatPtr(55.7), Longitude: floatPtr(37.6), ObservedAt: observed})
	}

	t.Run("emitted", func(t *testing.T) {
		deps := newTestHandler(t)
		deps.locations.EXPECT().
			Ingest(gomock.Any(), models.Actor{ID: unitID.String(), Role: models.RoleFieldUnit}, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ models.Actor, s models.LocationSample) (*models.IngestResult, error) {
				assert.True(t, s.ObservedAt.Equal(observed))
				return &models.IngestResult{
					Location: models.LiveLocation{LocationSample: s, Version: 1},
					Emitted:  true,
				}, nil
			})

		w := makeRequest(deps.router, http.MethodPost, "/api/v1/locations", body(), unitHeaders)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp IngestResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Emitted)
		assert.False(t, resp.Stale)
		require.NotNil(t, resp.Location)
		assert.Equal(t, int64(1), resp.Location.Version)
	})

	t.Run("stale sample acknowledged", func(t *testing.T) {
		deps := newTestHandler(t)
		deps.locations.EXPECT().Ingest(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, fmt.Errorf("location service: %w", models.ErrStaleUpdate))

		w := makeRequest(deps.router, http.MethodPost, "/api/v1/locations", body(), unitHeaders)

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.JSONEq(t, `{"emitted":false,"stale":true}`, w.Body.String())
	})

	t.Run("foreign unit", func(t *testing.T) {
		deps := newTestHandler(t)
		deps.locations.EXPECT().Ingest(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, models.ErrForbidden)

		w := makeRequest(deps.router, http.MethodPost, "/api/v1/locations", body(), unitHeaders)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("get unknown unit", func(t *testing.T) {
		deps := newTestHandler(t)
		deps.locations.EXPECT().GetLive(gomock.Any(), unitID).Return(nil, models.ErrNotFound)

		w := makeRequest(deps.router, http.MethodGet, "/api/v1/locations/"+unitID.String(), nil, dispatcherHeaders)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestReadEvents(t *testing.T) {
	deps := newTestHandler(t)
	ctx := context.Background()
	incidentID, resourceID := uuid.New(), uuid.New()
	require.NoError(t, deps.broker.Publish(ctx, models.TopicIncident, incidentID, 1, map[string]string{"status": "reported"}))
	require.NoError(t, deps.broker.Publish(ctx, models.TopicResource, resourceID, 1, map[string]string{"status": "available"}))
	require.NoError(t, deps.broker.Publish(ctx, models.TopicIncident, incidentID, 2, map[string]string{"status": "dispatched"}))

	// Первая страница по одной теме
	w := makeRequest(deps.router, http.MethodGet, "/api/v1/events?topics=incident&limit=1", nil, dispatcherHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	var page EventsPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Events, 1)
	assert.Equal(t, int64(1), page.Events[0].Version)

	// Продолжение с возвращенного курсора
	w = makeRequest(deps.router, http.MethodGet, fmt.Sprintf("/api/v1/events?topics=incident&cursor=%d", page.Cursor), nil, dispatcherHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	page = EventsPage{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Events, 1)
	assert.Equal(t, int64(2), page.Events[0].Version)
	assert.Equal(t, uint64(3), page.Cursor)

	// Все темы
	w = makeRequest(deps.router, http.MethodGet, "/api/v1/events", nil, dispatcherHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	page = EventsPage{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Events, 3)

	// Пустой ответ сохраняет курсор
	w = makeRequest(deps.router, http.MethodGet, "/api/v1/events?cursor=3", nil, dispatcherHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"events":[],"cursor":3}`, w.Body.String())

	w = makeRequest(deps.router, http.MethodGet, "/api/v1/events/head", nil, dispatcherHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"events":[],"cursor":3}`, w.Body.String())
}

func TestReadEvents_Errors(t *testing.T) {
	t.Run("unknown topic", func(t *testing.T) {
		deps := newTestHandler(t)
		w := makeRequest(deps.router, http.MethodGet, "/api/v1/events?topics=weather", nil, dispatcherHeaders)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad cursor", func(t *testing.T) {
		deps := newTestHandler(t)
		w := makeRequest(deps.router, http.MethodGet, "/api/v1/events?cursor=-1", nil, dispatcherHeaders)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("cursor expired", func(t *testing.T) {
		deps := newTestHandlerWithRetention(t, 2)
		for i := 0; i < 3; i++ {
			require.NoError(t, deps.broker.Publish(context.Background(), models.TopicIncident, uuid.New(), 1, map[string]int{"n": i}))
		}

		w := makeRequest(deps.router, http.MethodGet, "/api/v1/events?topics=incident&cursor=0", nil, dispatcherHeaders)
		assert.Equal(t, http.StatusGone, w.Code)

		w = makeRequest(deps.router, http.MethodGet, "/api/v1/events/ws?topics=incident&cursor=0", nil, dispatcherHeaders)
		assert.Equal(t, http.StatusGone, w.Code, "expired cursor is reported before the upgrade")
	})
}

func TestStreamEvents_Websocket(t *testing.T) {
	deps := newTestHandler(t)
	ctx := context.Background()
	incidentID := uuid.New()
	require.NoError(t, deps.broker.Publish(ctx, models.TopicIncident, incidentID, 1, map[string]string{"status": "reported"}))

	srv := httptest.NewServer(deps.router)
	defer srv.Close()

	header := http.Header{}
	for k, v := range dispatcherHeaders {
		header.Set(k, v)
	}
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/events/ws?topics=incident,resource"
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	readEvent := func() EventResponse {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var ev EventResponse
		require.NoError(t, conn.ReadJSON(&ev))
		return ev
	}

	// Сначала догоняющая часть из журнала
	first := readEvent()
	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, incidentID, first.EntityID)

	// Затем живой хвост; события по другим темам не приходят
	require.NoError(t, deps.broker.Publish(ctx, models.TopicLocation, uuid.New(), 1, map[string]string{}))
	require.NoError(t, deps.broker.Publish(ctx, models.TopicIncident, incidentID, 2, map[string]string{"status": "dispatched"}))

	second := readEvent()
	assert.Equal(t, uint64(3), second.Seq)
	assert.Equal(t, int64(2), second.Version)
	assert.Equal(t, "incident", second.Topic)
}
