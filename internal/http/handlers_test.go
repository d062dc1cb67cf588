package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/ride-hailing/internal/auth"
	"github.com/example/ride-hailing/internal/models"
	"github.com/example/ride-hailing/internal/payments"
	"github.com/example/ride-hailing/internal/rides"
	"github.com/example/ride-hailing/internal/storage"
	"github.com/example/ride-hailing/internal/trail"
)

func newTestServer() *Server {
	store := storage.NewMemoryStore()
	tokens := auth.NewTokenManager("test-secret", 15*time.Minute, 24*time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(Deps{
		Logger:   logger,
		Store:    store,
		Tokens:   tokens,
		Auth:     &auth.Service{Store: store, Tokens: tokens},
		Rides:    &rides.Service{Store: store},
		Trail:    &trail.Recorder{Store: store},
		Payments: &payments.Ledger{Store: store},
	})
}

func doJSON(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func register(t *testing.T, s *Server, username string, role models.Role) (string, *models.User) {
	t.Helper()
	w := doJSON(t, s, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"username":     username,
		"password":     "pw",
		"phone_number": "+1555" + username,
		"role":         role,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", username, w.Code, w.Body.String())
	}
	var resp struct {
		Access string       `json:"access"`
		User   *models.User `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp.Access, resp.User
}

func createRide(t *testing.T, s *Server, token string) *models.Ride {
	t.Helper()
	w := doJSON(t, s, http.MethodPost, "/api/v1/rides", token, map[string]any{
		"pickup_location":  map[string]float64{"lat": 40.71, "lon": -74.0},
		"dropoff_location": map[string]float64{"lat": 40.73, "lon": -73.99},
		"pickup_address":   "1 Main St",
		"dropoff_address":  "99 Broadway",
		"estimated_fare":   12.50,
		"distance":         5.2,
		"duration":         15,
		"payment_method":   "cash",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create ride: status %d body %s", w.Code, w.Body.String())
	}
	var ride models.Ride
	if err := json.Unmarshal(w.Body.Bytes(), &ride); err != nil {
		t.Fatal(err)
	}
	return &ride
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	s := newTestServer()
	if w := doJSON(t, s, http.MethodGet, "/api/v1/rides", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if w := doJSON(t, s, http.MethodGet, "/api/v1/rides", "not-a-token", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: status = %d, want 401", w.Code)
	}
}

func TestRideLifecycleOverHTTP(t *testing.T) {
	s := newTestServer()
	riderTok, _ := register(t, s, "rider", models.RoleUser)
	driverTok, driver := register(t, s, "driver", models.RoleDriver)

	ride := createRide(t, s, riderTok)
	if ride.Status != models.StatusRequested {
		t.Fatalf("status = %s", ride.Status)
	}

	// riders cannot accept
	if w := doJSON(t, s, http.MethodPost, "/api/v1/rides/"+ride.ID+"/accept_ride", riderTok, nil); w.Code != http.StatusForbidden {
		t.Fatalf("rider accept: status = %d, want 403", w.Code)
	}

	w := doJSON(t, s, http.MethodPost, "/api/v1/rides/"+ride.ID+"/accept_ride", driverTok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("accept: status %d body %s", w.Code, w.Body.String())
	}
	var accepted models.Ride
	_ = json.Unmarshal(w.Body.Bytes(), &accepted)
	if accepted.DriverID != driver.ID {
		t.Fatalf("driver = %q, want %q", accepted.DriverID, driver.ID)
	}

	// double accept is a bad request
	if w := doJSON(t, s, http.MethodPost, "/api/v1/rides/"+ride.ID+"/accept_ride", driverTok, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("second accept: status = %d, want 400", w.Code)
	}

	if w := doJSON(t, s, http.MethodPost, "/api/v1/rides/"+ride.ID+"/start_ride", driverTok, nil); w.Code != http.StatusOK {
		t.Fatalf("start: status %d", w.Code)
	}
	if w := doJSON(t, s, http.MethodPost, "/api/v1/rides/"+ride.ID+"/complete_ride", driverTok, nil); w.Code != http.StatusOK {
		t.Fatalf("complete: status %d", w.Code)
	}
	if w := doJSON(t, s, http.MethodPost, "/api/v1/rides/"+ride.ID+"/cancel_ride", riderTok, map[string]string{"reason": "too late"}); w.Code != http.StatusBadRequest {
		t.Fatalf("cancel completed: status = %d, want 400", w.Code)
	}
}

func TestListRidesScopedByRole(t *testing.T) {
	s := newTestServer()
	riderTok, _ := register(t, s, "rider", models.RoleUser)
	otherTok, _ := register(t, s, "other", models.RoleUser)
	adminTok, _ := register(t, s, "admin", models.RoleAdmin)
	driverTok, _ := register(t, s, "driver", models.RoleDriver)

	r1 := createRide(t, s, riderTok)
	createRide(t, s, otherTok)

	if w := doJSON(t, s, http.MethodPost, "/api/v1/rides/"+r1.ID+"/accept_ride", driverTok, nil); w.Code != http.StatusOK {
		t.Fatal("accept failed")
	}

	count := func(token string) int {
		w := doJSON(t, s, http.MethodGet, "/api/v1/rides", token, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("list: status %d", w.Code)
		}
		var list []models.Ride
		if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
			t.Fatal(err)
		}
		return len(list)
	}

	if n := count(adminTok); n != 2 {
		t.Errorf("admin sees %d, want 2", n)
	}
	if n := count(riderTok); n != 1 {
		t.Errorf("rider sees %d, want 1", n)
	}
	if n := count(driverTok); n != 1 {
		t.Errorf("driver sees %d, want 1", n)
	}
}

func TestLocationTrailOverHTTP(t *testing.T) {
	s := newTestServer()
	riderTok, _ := register(t, s, "rider", models.RoleUser)
	strangerTok, _ := register(t, s, "stranger", models.RoleUser)

	ride := createRide(t, s, riderTok)
	path := "/api/v1/rides/" + ride.ID + "/locations"

	for i := 0; i < 3; i++ {
		w := doJSON(t, s, http.MethodPost, path, riderTok, map[string]float64{"latitude": float64(i), "longitude": 0})
		if w.Code != http.StatusCreated {
			t.Fatalf("append %d: status %d", i, w.Code)
		}
	}
	// strangers cannot read or write the trail
	if w := doJSON(t, s, http.MethodPost, path, strangerTok, map[string]float64{"latitude": 1}); w.Code != http.StatusForbidden {
		t.Fatalf("stranger append: status = %d, want 403", w.Code)
	}
	if w := doJSON(t, s, http.MethodGet, path, strangerTok, nil); w.Code != http.StatusForbidden {
		t.Fatalf("stranger list: status = %d, want 403", w.Code)
	}

	w := doJSON(t, s, http.MethodGet, path, riderTok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: status %d", w.Code)
	}
	var samples []models.LocationSample
	if err := json.Unmarshal(w.Body.Bytes(), &samples); err != nil {
		t.Fatal(err)
	}
	if len(samples) != 3 {
		t.Fatalf("got %d samples", len(samples))
	}
}

func TestDuplicateRegistrationRejected(t *testing.T) {
	s := newTestServer()
	register(t, s, "alice", models.RoleUser)

	w := doJSON(t, s, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"username": "alice",
		"password": "pw",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestLoginWithPhoneInUsernameField(t *testing.T) {
	s := newTestServer()
	register(t, s, "bob", models.RoleUser)

	w := doJSON(t, s, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "+1555bob", // phone number supplied as username
		"password": "pw",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", w.Code, w.Body.String())
	}
}

func TestAdminEndpoints(t *testing.T) {
	s := newTestServer()
	adminTok, _ := register(t, s, "admin", models.RoleAdmin)
	riderTok, _ := register(t, s, "rider", models.RoleUser)

	// create_driver is admin only
	body := map[string]any{"username": "newdriver", "password": "pw"}
	if w := doJSON(t, s, http.MethodPost, "/api/v1/users/create_driver", riderTok, body); w.Code != http.StatusForbidden {
		t.Fatalf("rider create_driver: status = %d, want 403", w.Code)
	}
	w := doJSON(t, s, http.MethodPost, "/api/v1/users/create_driver", adminTok, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("admin create_driver: status %d body %s", w.Code, w.Body.String())
	}
	var u models.User
	_ = json.Unmarshal(w.Body.Bytes(), &u)
	if u.Role != models.RoleDriver {
		t.Fatalf("created role = %s, want driver", u.Role)
	}

	// ride deletion is admin only
	ride := createRide(t, s, riderTok)
	if w := doJSON(t, s, http.MethodDelete, "/api/v1/rides/"+ride.ID, riderTok, nil); w.Code != http.StatusForbidden {
		t.Fatalf("rider delete: status = %d", w.Code)
	}
	if w := doJSON(t, s, http.MethodDelete, "/api/v1/rides/"+ride.ID, adminTok, nil); w.Code != http.StatusNoContent {
		t.Fatalf("admin delete: status = %d", w.Code)
	}
}

func TestCarDetailsSelfDriverOnly(t *testing.T) {
	s := newTestServer()
	driverTok, driver := register(t, s, "driver", models.RoleDriver)
	otherTok, _ := register(t, s, "driver2", models.RoleDriver)
	riderTok, rider := register(t, s, "rider", models.RoleUser)

	path := fmt.Sprintf("/api/v1/users/%s/update_car_details", driver.ID)
	body := map[string]any{"car_type": "sedan", "car_color": "blue", "is_available": true}

	if w := doJSON(t, s, http.MethodPatch, fmt.Sprintf("/api/v1/users/%s/update_car_details", rider.ID), riderTok, body); w.Code != http.StatusForbidden {
		t.Fatalf("rider patch: status = %d, want 403", w.Code)
	}
	if w := doJSON(t, s, http.MethodPatch, path, otherTok, body); w.Code != http.StatusForbidden {
		t.Fatalf("other driver patch: status = %d, want 403", w.Code)
	}
	w := doJSON(t, s, http.MethodPatch, path, driverTok, body)
	if w.Code != http.StatusOK {
		t.Fatalf("self patch: status %d body %s", w.Code, w.Body.String())
	}
	var u models.User
	_ = json.Unmarshal(w.Body.Bytes(), &u)
	if u.CarType != "sedan" || !u.IsAvailable {
		t.Fatalf("car details not applied: %+v", u)
	}

	// and the driver now shows up as available
	w = doJSON(t, s, http.MethodGet, "/api/v1/users/available_drivers", riderTok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("available_drivers: status %d", w.Code)
	}
	var list []models.User
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	found := false
	for _, d := range list {
		if d.ID == driver.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("driver missing from available_drivers")
	}
}

func TestPaymentsOverHTTP(t *testing.T) {
	s := newTestServer()
	riderTok, _ := register(t, s, "rider", models.RoleUser)
	strangerTok, _ := register(t, s, "stranger", models.RoleUser)

	ride := createRide(t, s, riderTok)

	w := doJSON(t, s, http.MethodPost, "/api/v1/payments", riderTok, map[string]any{
		"ride_id":        ride.ID,
		"amount":         12.50,
		"payment_method": "cash",
		"status":         "completed",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("append payment: status %d body %s", w.Code, w.Body.String())
	}

	if w := doJSON(t, s, http.MethodPost, "/api/v1/payments", strangerTok, map[string]any{
		"ride_id":        ride.ID,
		"amount":         1,
		"payment_method": "cash",
	}); w.Code != http.StatusForbidden {
		t.Fatalf("stranger payment: status = %d, want 403", w.Code)
	}

	w = doJSON(t, s, http.MethodGet, "/api/v1/payments", strangerTok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list payments: status %d", w.Code)
	}
	var list []models.PaymentRecord
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list) != 0 {
		t.Fatalf("stranger sees %d payments, want 0", len(list))
	}
}
