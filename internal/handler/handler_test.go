package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smsride/internal/domain"
	internalRedis "smsride/internal/redis"
	"smsride/internal/repository/memory"
	"smsride/internal/service"
)

const testServiceNumber = "1234"

// fakeLocationStore keeps positions in a map.
type fakeLocationStore struct {
	mu        sync.Mutex
	positions map[string]domain.Location
	err       error
}

func newFakeLocationStore() *fakeLocationStore {
	return &fakeLocationStore{positions: make(map[string]domain.Location)}
}

func (f *fakeLocationStore) RequestLocation(ctx context.Context, phone string) (domain.Location, error) {
	return f.Position(ctx, phone)
}

func (f *fakeLocationStore) Position(ctx context.Context, phone string) (domain.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	loc, ok := f.positions[phone]
	if !ok {
		return domain.Location{}, service.ErrLocationUnavailable
	}
	return loc, nil
}

func (f *fakeLocationStore) UpdateLocation(ctx context.Context, phone string, lat, lng float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.positions[phone] = domain.Location{Latitude: lat, Longitude: lng}
	return nil
}

func (f *fakeLocationStore) RemoveLocation(ctx context.Context, phone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.positions, phone)
	return nil
}

// recordingSink keeps every location message it is handed.
type recordingSink struct {
	mu        sync.Mutex
	locations map[string][]domain.Location
}

func newRecordingSink() *recordingSink {
	return &recordingSink{locations: make(map[string][]domain.Location)}
}

func (r *recordingSink) SendText(ctx context.Context, from, to, text string) error {
	return nil
}

func (r *recordingSink) SendLocation(ctx context.Context, from, to, text string, location domain.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locations[to] = append(r.locations[to], location)
	return nil
}

func (r *recordingSink) locationsTo(to string) []domain.Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Location(nil), r.locations[to]...)
}

type testServer struct {
	router    *gin.Engine
	rides     *memory.RideLedger
	locations *fakeLocationStore
	dispatch  *service.DispatchService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	locations := newFakeLocationStore()
	s := newTestServerWith(t, locations, service.NewLogSink())
	s.locations = locations
	return s
}

func newTestServerWith(t *testing.T, locations internalRedis.LocationStoreInterface, sink service.NotificationSink) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	directory := memory.NewDirectory()
	rides := memory.NewRideLedger(1)
	dispatch := service.NewDispatchService(
		directory,
		rides,
		service.NewNotificationService(testServiceNumber, sink),
		locations,
		service.DispatchOptions{},
	)
	t.Cleanup(dispatch.Close)

	smsHandler := NewSMSHandler(dispatch, testServiceNumber)
	locationHandler := NewLocationHandler(locations)
	rideHandler := NewRideHandler(rides)
	participantHandler := NewParticipantHandler(directory)

	router := gin.New()
	router.POST("/v1/sms/inbound", smsHandler.Inbound)
	router.GET("/v1/commands", smsHandler.Commands)
	router.POST("/v1/locations/:phone", locationHandler.UpdateLocation)
	router.GET("/v1/locations/:phone", locationHandler.GetLocation)
	router.DELETE("/v1/locations/:phone", locationHandler.RemoveLocation)
	router.GET("/v1/rides", rideHandler.GetAll)
	router.GET("/v1/rides/:number", rideHandler.GetRide)
	router.GET("/v1/clients", participantHandler.GetClients)
	router.GET("/v1/drivers", participantHandler.GetDrivers)

	return &testServer{router: router, rides: rides, dispatch: dispatch}
}

func (s *testServer) do(method, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) sms(from, text string) InboundSMSResponse {
	body, _ := json.Marshal(InboundSMSRequest{From: from, To: testServiceNumber, Text: text})
	w := s.do(http.MethodPost, "/v1/sms/inbound", "application/json", string(body))
	var resp InboundSMSResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func TestInbound_RunsCommands(t *testing.T) {
	s := newTestServer(t)

	resp := s.sms("A", "register-client")
	assert.Equal(t, InboundSMSResponse{Command: "REGISTER_CLIENT", Accepted: true}, resp)

	resp = s.sms("B", "register-driver")
	assert.True(t, resp.Accepted)

	resp = s.sms("A", "ride-request")
	assert.Equal(t, "RIDE_REQUEST", resp.Command)
	assert.True(t, resp.Accepted)
	assert.Equal(t, int64(1), resp.RideNumber)

	resp = s.sms("B", "take:1")
	assert.True(t, resp.Accepted)
	assert.Equal(t, int64(1), resp.RideNumber)

	s.dispatch.Wait()
	ride, err := s.rides.GetByNumber(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "B", ride.DriverNumber)
	assert.True(t, ride.Active)
}

func TestInbound_RejectionIsAccepted(t *testing.T) {
	s := newTestServer(t)
	s.sms("A", "register-client")

	body, _ := json.Marshal(InboundSMSRequest{From: "A", Text: "register-driver"})
	w := s.do(http.MethodPost, "/v1/sms/inbound", "application/json", string(body))

	assert.Equal(t, http.StatusAccepted, w.Code)
	var resp InboundSMSResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Accepted)
	assert.Equal(t, "REGISTER_DRIVER", resp.Command)
	assert.NotEmpty(t, resp.Reason)
}

func TestInbound_FormEncoded(t *testing.T) {
	s := newTestServer(t)

	form := url.Values{"from": {"A"}, "text": {"REGISTER-CLIENT"}}
	w := s.do(http.MethodPost, "/v1/sms/inbound", "application/x-www-form-urlencoded", form.Encode())

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"accepted":true`)
}

func TestInbound_Unrecognized(t *testing.T) {
	s := newTestServer(t)

	resp := s.sms("A", "what is this")
	assert.Equal(t, InboundSMSResponse{Command: "UNRECOGNIZED", Accepted: true}, resp)
}

func TestInbound_MissingSender(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/v1/sms/inbound", "application/json", `{"text":"stop"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/v1/sms/inbound", "application/json", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCommands_ServesHelp(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/v1/commands", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), testServiceNumber)
	assert.Contains(t, w.Body.String(), "ride-request")
}

func TestLocation_UpdateGetRemove(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/v1/locations/A", "application/json", `{"lat":0.4,"lng":0.6}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/v1/locations/A", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var loc LocationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loc))
	assert.Equal(t, LocationResponse{Phone: "A", Lat: 0.4, Lng: 0.6}, loc)

	w = s.do(http.MethodDelete, "/v1/locations/A", "", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/v1/locations/A", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLocation_Validation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/v1/locations/A", "application/json", `{"lat":91,"lng":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/v1/locations/A", "application/json", `{"lat":0,"lng":-181}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/v1/locations/A", "application/json", `oops`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLocation_StoreFailure(t *testing.T) {
	s := newTestServer(t)
	s.locations.err = errors.New("connection refused")

	w := s.do(http.MethodPost, "/v1/locations/A", "application/json", `{"lat":1,"lng":1}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRides_Views(t *testing.T) {
	s := newTestServer(t)
	s.sms("A", "register-client")
	s.sms("A", "ride-request")
	s.sms("A", "ride-request")
	s.dispatch.Wait()

	w := s.do(http.MethodGet, "/v1/rides/2", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var ride RideResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ride))
	assert.Equal(t, int64(2), ride.Number)
	assert.Equal(t, "A", ride.Client)
	assert.Empty(t, ride.Driver)

	w = s.do(http.MethodGet, "/v1/rides/9", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/v1/rides/abc", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/v1/rides?limit=1", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var rides []RideResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rides))
	require.Len(t, rides, 1)
	assert.Equal(t, int64(2), rides[0].Number)
}

func TestParticipants_Views(t *testing.T) {
	s := newTestServer(t)
	s.sms("A", "register-client")
	s.sms("B", "register-driver")
	s.sms("C", "register-driver")

	w := s.do(http.MethodGet, "/v1/drivers", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var drivers []ParticipantResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &drivers))
	require.Len(t, drivers, 2)
	assert.Equal(t, "B", drivers[0].Phone)

	w = s.do(http.MethodGet, "/v1/clients", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var clients []ParticipantResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &clients))
	require.Len(t, clients, 1)
	assert.Equal(t, "A", clients[0].Phone)
}

func TestIsInfrastructureError(t *testing.T) {
	assert.False(t, isInfrastructureError(service.ErrNotClient))
	assert.True(t, isInfrastructureError(errors.New("connection reset")))
}

func TestLocation_ReportedPositionsReachNotifications(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sink := newRecordingSink()
	s := newTestServerWith(t, internalRedis.NewLocationStore(client), sink)

	// Warsaw and New York.
	w := s.do(http.MethodPost, "/v1/locations/A", "application/json", `{"lat":52.23,"lng":21.01}`)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodPost, "/v1/locations/B", "application/json", `{"lat":40.71,"lng":-74.0}`)
	require.Equal(t, http.StatusNoContent, w.Code)

	s.sms("A", "register-client")
	s.sms("B", "register-driver")
	require.True(t, s.sms("A", "ride-request").Accepted)
	s.dispatch.Wait()

	warsaw := domain.Location{
		Latitude:  (52.23 + internalRedis.MaxLatitude) / (2 * internalRedis.MaxLatitude),
		Longitude: (21.01 + 180) / 360,
	}
	newYork := domain.Location{
		Latitude:  (40.71 + internalRedis.MaxLatitude) / (2 * internalRedis.MaxLatitude),
		Longitude: (-74.0 + 180) / 360,
	}

	clientPins := sink.locationsTo("A")
	require.Len(t, clientPins, 1)
	assert.InDelta(t, warsaw.Latitude, clientPins[0].Latitude, 1e-4)
	assert.InDelta(t, warsaw.Longitude, clientPins[0].Longitude, 1e-4)

	driverPins := sink.locationsTo("B")
	require.Len(t, driverPins, 1)
	assert.InDelta(t, warsaw.Latitude, driverPins[0].Latitude, 1e-4)
	assert.InDelta(t, warsaw.Longitude, driverPins[0].Longitude, 1e-4)

	require.True(t, s.sms("B", "take:1").Accepted)
	s.dispatch.Wait()

	clientPins = sink.locationsTo("A")
	require.Len(t, clientPins, 2)
	assert.InDelta(t, newYork.Latitude, clientPins[1].Latitude, 1e-4)
	assert.InDelta(t, newYork.Longitude, clientPins[1].Longitude, 1e-4)
	assert.NotEqual(t, clientPins[0], clientPins[1])

	// The read view still reports degrees.
	w = s.do(http.MethodGet, "/v1/locations/A", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var loc LocationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loc))
	assert.InDelta(t, 52.23, loc.Lat, 1e-4)
	assert.InDelta(t, 21.01, loc.Lng, 1e-4)
}
