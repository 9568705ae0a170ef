package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func resetHealth() {
	healthChecker = newHealthChecker()
}

func TestRegisterComponent(t *testing.T) {
	resetHealth()

	RegisterComponent(ComponentStore, true, "bolt")

	comp, ok := Component(ComponentStore)
	if !ok {
		t.Fatal("component not registered")
	}
	if !comp.Healthy {
		t.Error("component should be healthy")
	}
	if comp.Message != "bolt" {
		t.Errorf("expected message 'bolt', got '%s'", comp.Message)
	}
}

func TestGetHealth(t *testing.T) {
	tests := []struct {
		name       string
		components map[string]bool
		want       string
	}{
		{
			name:       "all healthy",
			components: map[string]bool{ComponentStore: true, ComponentRemote: true},
			want:       StatusHealthy,
		},
		{
			name:       "remote failing degrades",
			components: map[string]bool{ComponentStore: true, ComponentRemote: false},
			want:       StatusDegraded,
		},
		{
			name:       "store failing is unhealthy",
			components: map[string]bool{ComponentStore: false, ComponentRemote: true},
			want:       StatusUnhealthy,
		},
		{
			name:       "store failing outranks remote failing",
			components: map[string]bool{ComponentRemote: false, ComponentStore: false, ComponentCache: false},
			want:       StatusUnhealthy,
		},
		{
			name:       "nothing registered",
			components: map[string]bool{},
			want:       StatusHealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetHealth()
			for name, healthy := range tt.components {
				RegisterComponent(name, healthy, "msg")
			}

			health := GetHealth()
			if health.Status != tt.want {
				t.Errorf("expected status %q, got %q", tt.want, health.Status)
			}
			if len(health.Components) != len(tt.components) {
				t.Errorf("expected %d components, got %d", len(tt.components), len(health.Components))
			}
		})
	}
}

func TestGetReadiness(t *testing.T) {
	resetHealth()

	if r := GetReadiness(); r.Status != "not_ready" {
		t.Errorf("expected not_ready before store registers, got %s", r.Status)
	}

	RegisterComponent(ComponentStore, false, "locked")
	if r := GetReadiness(); r.Status != "not_ready" || r.Message != "waiting for store" {
		t.Errorf("unexpected readiness: %+v", r)
	}

	UpdateComponent(ComponentStore, true, "")
	RegisterComponent(ComponentRemote, false, "timeout")
	if r := GetReadiness(); r.Status != "ready" {
		t.Errorf("remote should not block readiness, got %s", r.Status)
	}
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		store      bool
		remote     bool
		wantCode   int
		wantStatus string
	}{
		{"healthy", true, true, http.StatusOK, StatusHealthy},
		{"degraded", true, false, http.StatusOK, StatusDegraded},
		{"unhealthy", false, true, http.StatusServiceUnavailable, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetHealth()
			SetVersion("1.0.0")
			RegisterComponent(ComponentStore, tt.store, "")
			RegisterComponent(ComponentRemote, tt.remote, "")

			req := httptest.NewRequest("GET", "/health", nil)
			w := httptest.NewRecorder()
			HealthHandler()(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("expected status code %d, got %d", tt.wantCode, w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected Content-Type application/json, got %s", ct)
			}

			var health HealthStatus
			if err := json.NewDecoder(w.Body).Decode(&health); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if health.Status != tt.wantStatus {
				t.Errorf("expected status %q, got %q", tt.wantStatus, health.Status)
			}
			if health.Version != "1.0.0" {
				t.Errorf("expected version '1.0.0', got '%s'", health.Version)
			}
		})
	}
}

func TestReadyHandler_NotReady(t *testing.T) {
	resetHealth()

	req := httptest.NewRequest("GET", "/ready", nil)
	w := httptest.NewRecorder()
	ReadyHandler()(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status code 503, got %d", w.Code)
	}
}

func TestServeMux(t *testing.T) {
	resetHealth()
	RegisterComponent(ComponentStore, true, "")

	srv := httptest.NewServer(NewServeMux())
	defer srv.Close()

	for _, path := range []string{"/metrics", "/health", "/ready", "/live"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, resp.StatusCode)
		}
	}
}
