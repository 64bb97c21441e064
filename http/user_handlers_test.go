package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cardioml/db"
)

func postJSON(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	newMux().ServeHTTP(w, req)
	return w
}

func TestRegisterAndLogin(t *testing.T) {
	w := postJSON(t, "/api/users",
		`{"email":"reg@example.com","password":"pass1234","first_name":"Ada","category":"patient"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var user db.User
	if err := json.Unmarshal(w.Body.Bytes(), &user); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if user.ID == 0 || user.Email != "reg@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Fatal("response must not leak password fields")
	}

	w = postJSON(t, "/api/users/login", `{"email":"reg@example.com","password":"pass1234"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = postJSON(t, "/api/users/login", `{"email":"reg@example.com","password":"wrong"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	w = postJSON(t, "/api/users/login", `{"email":"ghost@example.com","password":"pass1234"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown email, got %d", w.Code)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	body := `{"email":"twice@example.com","password":"pass1234"}`
	if w := postJSON(t, "/api/users", body); w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if w := postJSON(t, "/api/users", body); w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestRegisterInvalidInput(t *testing.T) {
	cases := []string{
		`{"email":"not-an-email","password":"pass1234"}`,
		`{"email":"ok@example.com","password":"abc"}`,
		`{"email":"ok@example.com","password":"pass1234","category":"admin"}`,
		`{not json`,
	}
	for _, body := range cases {
		if w := postJSON(t, "/api/users", body); w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", body, w.Code)
		}
	}
}

func TestGetAndDeleteUser(t *testing.T) {
	w := postJSON(t, "/api/users", `{"email":"crud@example.com","password":"pass1234"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	var user db.User
	if err := json.Unmarshal(w.Body.Bytes(), &user); err != nil {
		t.Fatalf("invalid json: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/users/%d", user.ID), nil)
	get := httptest.NewRecorder()
	newMux().ServeHTTP(get, req)
	if get.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", get.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/users/%d", user.ID), nil)
	del := httptest.NewRecorder()
	newMux().ServeHTTP(del, req)
	if del.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", del.Code)
	}

	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/users/%d", user.ID), nil)
	gone := httptest.NewRecorder()
	newMux().ServeHTTP(gone, req)
	if gone.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", gone.Code)
	}
}

func TestGetUserBadID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/users/abc", nil)
	w := httptest.NewRecorder()
	newMux().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestPatientLifecycle(t *testing.T) {
	w := postJSON(t, "/api/patients", `{
        "email":"kid@example.com","password":"pass1234","first_name":"Sam",
        "age":9,"ailment":"murmur","guardian_fullname":"Alex","guardian_email":"alex@example.com"
    }`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var patient db.Patient
	if err := json.Unmarshal(w.Body.Bytes(), &patient); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if patient.Category != db.CategoryPatient || patient.Age != 9 {
		t.Fatalf("unexpected patient: %+v", patient)
	}

	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/api/patients/%d", patient.ID),
		strings.NewReader(`{"email":"kid@example.com","password":"pass1234","age":10,"ailment":"resolved"}`))
	upd := httptest.NewRecorder()
	newMux().ServeHTTP(upd, req)
	if upd.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", upd.Code, upd.Body.String())
	}
	var updated db.Patient
	if err := json.Unmarshal(upd.Body.Bytes(), &updated); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if updated.Age != 10 || updated.Ailment != "resolved" {
		t.Fatalf("update not applied: %+v", updated)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/patients?limit=10", nil)
	list := httptest.NewRecorder()
	newMux().ServeHTTP(list, req)
	if list.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", list.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/patients/%d", patient.ID), nil)
	del := httptest.NewRecorder()
	newMux().ServeHTTP(del, req)
	if del.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", del.Code)
	}
}

func TestPatientInvalidGuardianEmail(t *testing.T) {
	w := postJSON(t, "/api/patients",
		`{"email":"g@example.com","password":"pass1234","guardian_email":"broken"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestPractitionerLifecycle(t *testing.T) {
	w := postJSON(t, "/api/practitioners", `{
        "email":"md@example.com","password":"pass1234",
        "specialty":"cardiology","license_number":"MD-77"
    }`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var practitioner db.Practitioner
	if err := json.Unmarshal(w.Body.Bytes(), &practitioner); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if practitioner.Specialty != "cardiology" {
		t.Fatalf("unexpected practitioner: %+v", practitioner)
	}

	req := httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/practitioners/%d", practitioner.ID), nil)
	get := httptest.NewRecorder()
	newMux().ServeHTTP(get, req)
	if get.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", get.Code)
	}
}

func TestFeatureEndpoints(t *testing.T) {
	w := postJSON(t, "/api/features",
		fmt.Sprintf(`{"data":%s,"target":1}`, validFeatureJSON))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var record db.FeatureRecord
	if err := json.Unmarshal(w.Body.Bytes(), &record); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if record.Target == nil || *record.Target != 1 {
		t.Fatalf("unexpected target: %v", record.Target)
	}

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/features/%d", record.ID), nil)
	get := httptest.NewRecorder()
	newMux().ServeHTTP(get, req)
	if get.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", get.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/features?limit=5", nil)
	list := httptest.NewRecorder()
	newMux().ServeHTTP(list, req)
	if list.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", list.Code)
	}

	w = postJSON(t, "/api/features", fmt.Sprintf(`{"data":%s,"target":7}`, validFeatureJSON))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range target, got %d", w.Code)
	}
}
