package db

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestHealthResponse_JSON(t *testing.T) {
	resp := HealthResponse{
		Status: "unhealthy",
		Error:  "connection refused",
		Pool:   PoolStats{TotalConns: 3, MaxConns: 20, AcquireDuration: "1.5ms"},
	}
	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	for _, want := range []string{`"status":"unhealthy"`, `"error":"connection refused"`, `"total_conns":3`, `"max_conns":20`, `"acquire_duration":"1.5ms"`} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %s in %s", want, s)
		}
	}
}

func TestHealthResponse_OmitsEmptyError(t *testing.T) {
	b, _ := json.Marshal(HealthResponse{Status: "healthy"})
	if strings.Contains(string(b), `"error"`) {
		t.Errorf("expected error to be omitted, got %s", b)
	}
}
