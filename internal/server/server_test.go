package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightowl-app/nightowl/internal/catalog"
	"github.com/nightowl-app/nightowl/internal/chat"
	"github.com/nightowl-app/nightowl/internal/models"
	"github.com/nightowl-app/nightowl/internal/recommend"
)

type stubSource struct {
	events []models.Event
	err    error
}

func (s *stubSource) Fetch(ctx context.Context) ([]models.Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.events, nil
}

type stubWeather struct {
	snapshot *models.WeatherSnapshot
	err      error
}

func (s *stubWeather) Current(ctx context.Context) (*models.WeatherSnapshot, error) {
	return s.snapshot, s.err
}

func serverEvents() []models.Event {
	soon := time.Now().Add(3 * time.Hour)
	return []models.Event{
		{
			Title: "Club Takeover", StartTime: &soon, Venue: "Sub Club",
			Category: "nightlife", Tags: []string{"nightlife"},
			SourceURL: "https://www.whatsonglasgow.co.uk/event/1",
		},
		{
			Title: "Comedy Night", StartTime: &soon, Venue: "The Stand",
			Category: "comedy", Tags: []string{"comedy"},
			SourceURL: "https://www.whatsonglasgow.co.uk/event/2",
		},
	}
}

func newTestServer(t *testing.T, source *stubSource, weather chat.WeatherProvider) (*Server, *catalog.Store) {
	t.Helper()

	store := catalog.New(source, time.Hour, time.Second, 100)
	if source.err == nil && len(source.events) > 0 {
		require.NoError(t, store.Refresh(context.Background()))
	}

	composer := recommend.New(nil, 3, "Glasgow")
	engine := chat.NewEngine(chat.NewSessionStore(time.Hour), store, weather, composer)
	return New(":0", engine, store, weather, 5*time.Second, 5*time.Second), store
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestChatEndpointFlow(t *testing.T) {
	s, _ := newTestServer(t, &stubSource{events: serverEvents()}, &stubWeather{
		snapshot: models.NewWeatherSnapshot(9, "Rain", 1.0, nil),
	})

	rec := doJSON(t, s, http.MethodPost, "/api/chat", `{"message":"start"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp chat.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "greeting", resp.Stage)

	// Walk the elicitation to completion on the same session.
	id := resp.SessionID
	for _, msg := range []string{"hey", "party", "4"} {
		body, err := json.Marshal(map[string]string{"session_id": id, "message": msg})
		require.NoError(t, err)
		rec = doJSON(t, s, http.MethodPost, "/api/chat", string(body))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	body, err := json.Marshal(map[string]string{"session_id": id, "message": "£20"})
	require.NoError(t, err)
	rec = doJSON(t, s, http.MethodPost, "/api/chat", string(body))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "complete", resp.Stage)
	assert.NotEmpty(t, resp.Recommendations)
	assert.LessOrEqual(t, len(resp.Recommendations), 3)
}

func TestChatEndpointRejectsEmptyMessage(t *testing.T) {
	s, _ := newTestServer(t, &stubSource{events: serverEvents()}, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/chat", `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/chat", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, &stubSource{events: serverEvents()}, nil)

	rec := doJSON(t, s, http.MethodGet, "/api/events", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Events     []models.Event `json:"events"`
		Categories []string       `json:"categories"`
		FetchedAt  *time.Time     `json:"fetched_at"`
		Stale      bool           `json:"stale"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Events, 2)
	assert.Equal(t, []string{"comedy", "nightlife"}, resp.Categories)
	require.NotNil(t, resp.FetchedAt)
	assert.False(t, resp.Stale)
}

func TestEventsEndpointFiltering(t *testing.T) {
	s, _ := newTestServer(t, &stubSource{events: serverEvents()}, nil)

	rec := doJSON(t, s, http.MethodGet, "/api/events?category=comedy", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Events []models.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "Comedy Night", resp.Events[0].Title)

	rec = doJSON(t, s, http.MethodGet, "/api/events?search=club", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "Club Takeover", resp.Events[0].Title)
}

type flipSource struct {
	mu    sync.Mutex
	sets  [][]models.Event
	calls int
}

func (s *flipSource) Fetch(ctx context.Context) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.sets[s.calls%len(s.sets)]
	s.calls++
	return set, nil
}

func TestEventsEndpointServesOneFetchCycle(t *testing.T) {
	soon := time.Now().Add(3 * time.Hour)
	comedy := []models.Event{{
		Title: "Comedy Night", StartTime: &soon, Venue: "The Stand",
		Category: "comedy", Tags: []string{"comedy"},
		SourceURL: "https://www.whatsonglasgow.co.uk/event/1",
	}}
	music := []models.Event{{
		Title: "Jazz Evening", StartTime: &soon, Venue: "The Blue Arrow",
		Category: "music", Tags: []string{"music"},
		SourceURL: "https://www.whatsonglasgow.co.uk/event/2",
	}}

	source := &flipSource{sets: [][]models.Event{comedy, music}}
	store := catalog.New(source, time.Hour, time.Second, 100)
	require.NoError(t, store.Refresh(context.Background()))

	engine := chat.NewEngine(chat.NewSessionStore(time.Hour), store, nil, recommend.New(nil, 3, "Glasgow"))
	s := New(":0", engine, store, nil, 5*time.Second, 5*time.Second)

	// Swap snapshots continuously while requests are served. The events and
	// categories in each response must come from the same snapshot.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_ = store.Refresh(context.Background())
		}
	}()

	for i := 0; i < 50; i++ {
		rec := doJSON(t, s, http.MethodGet, "/api/events", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Events     []models.Event `json:"events"`
			Categories []string       `json:"categories"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Events, 1)
		assert.Equal(t, []string{resp.Events[0].Category}, resp.Categories)
	}
	<-done
}

func TestWeatherEndpoint(t *testing.T) {
	s, _ := newTestServer(t, &stubSource{events: serverEvents()}, &stubWeather{
		snapshot: models.NewWeatherSnapshot(14, "Clear sky", 0, nil),
	})

	rec := doJSON(t, s, http.MethodGet, "/api/weather", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot models.WeatherSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.True(t, snapshot.IsOutdoorFriendly)
}

func TestWeatherEndpointDisabledAndFailing(t *testing.T) {
	s, _ := newTestServer(t, &stubSource{events: serverEvents()}, nil)
	rec := doJSON(t, s, http.MethodGet, "/api/weather", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s, _ = newTestServer(t, &stubSource{events: serverEvents()}, &stubWeather{err: errors.New("down")})
	rec = doJSON(t, s, http.MethodGet, "/api/weather", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRefreshEndpoint(t *testing.T) {
	s, _ := newTestServer(t, &stubSource{events: serverEvents()}, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 2, resp["events"])
}

func TestRefreshEndpointFailure(t *testing.T) {
	s, _ := newTestServer(t, &stubSource{err: errors.New("source down")}, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/refresh", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t, &stubSource{events: serverEvents()}, nil)

	rec := doJSON(t, s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.EqualValues(t, 2, resp["events"])
}
