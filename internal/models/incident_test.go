package models

import (
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIncident_Success(t *testing.T) {
	inc, err := NewIncident(IncidentReport{
		Title:       "  House fire ",
		Description: "Kitchen blaze",
		Severity:    SeverityCritical,
		Latitude:    6.93,
		Longitude:   79.86,
		PhotoURL:    "https://blob.example/p.jpg",
	})

	require.NoError(t, err)
	assert.Equal(t, "House fire", inc.Title)
	assert.Equal(t, StatusReported, inc.Status)
	assert.Equal(t, int64(1), inc.Version)
	assert.Nil(t, inc.AssignedResource)
	assert.Equal(t, "https://blob.example/p.jpg", inc.PhotoURL)
}

func TestNewIncident_ValidationErrors(t *testing.T) {
	cases := []struct {
		name     string
		title    string
		severity Severity
		lat, lon float64
		photo    string
	}{
		{"empty title", "   ", SeverityLow, 0, 0, ""},
		{"unknown severity", "Fire", Severity("extreme"), 0, 0, ""},
		{"latitude too big", "Fire", SeverityLow, 90.01, 0, ""},
		{"longitude too small", "Fire", SeverityLow, 0, -180.5, ""},
		{"nan latitude", "Fire", SeverityLow, math.NaN(), 0, ""},
		{"relative photo url", "Fire", SeverityLow, 0, 0, "/photos/1.jpg"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inc, err := NewIncident(IncidentReport{
				Title:     tc.title,
				Severity:  tc.severity,
				Latitude:  tc.lat,
				Longitude: tc.lon,
				PhotoURL:  tc.photo,
			})
			assert.Nil(t, inc)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
}

func TestIncidentStatus_TransitionGraph(t *testing.T) {
	allowed := map[IncidentStatus][]IncidentStatus{
		StatusReported:   {StatusDispatched, StatusCancelled},
		StatusDispatched: {StatusEnRoute, StatusCancelled},
		StatusEnRoute:    {StatusArrived, StatusCancelled},
		StatusArrived:    {StatusResolved},
	}

	// Полный перебор пар: разрешены ровно рёбра графа
	for _, from := range AllIncidentStatuses {
		for _, to := range AllIncidentStatuses {
			expected := false
			for _, a := range allowed[from] {
				if a == to {
					expected = true
				}
			}
			assert.Equal(t, expected, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestIncidentStatus_Flags(t *testing.T) {
	assert.True(t, StatusResolved.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusArrived.Terminal())

	assert.True(t, StatusDispatched.HoldsResource())
	assert.True(t, StatusArrived.HoldsResource())
	assert.False(t, StatusReported.HoldsResource())
	assert.False(t, StatusResolved.HoldsResource())
}

func TestIncident_CloneDoesNotShareAssignment(t *testing.T) {
	inc, err := NewIncident(IncidentReport{Title: "Fire", Severity: SeverityHigh, Latitude: 1, Longitude: 1})
	require.NoError(t, err)
	id := uuid.New()
	inc.AssignedResource = &id

	cloned := inc.Clone()
	*cloned.AssignedResource = uuid.New()

	assert.NotEqual(t, *inc.AssignedResource, *cloned.AssignedResource)
}

func TestParseActor(t *testing.T) {
	actor, err := ParseActor(" unit-7 ", "Field_Unit")
	require.NoError(t, err)
	assert.Equal(t, Actor{ID: "unit-7", Role: RoleFieldUnit}, actor)

	_, err = ParseActor("", "dispatcher")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ParseActor("x", "mayor")
	assert.ErrorIs(t, err, ErrValidation)

	assert.True(t, Actor{Role: RoleAdmin}.Can(RoleDispatcher))
	assert.False(t, Actor{Role: RoleReporter}.Can(RoleDispatcher, RoleFieldUnit))
}
