package protocol

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _ := newTestService()
	return NewHandler(svc), echo.New()
}

func jsonRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	return httpErr.Code
}

func TestHandler_Create(t *testing.T) {
	h, e := newTestHandler()
	body := `{"name":"Leuprorelina","category":"MEDICATION","frequencyDays":28,"milestones":[{"dayOffset":7,"message":"check side effects"}]}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, body), rec)

	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var p Protocol
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(p.Milestones) != 1 || p.Milestones[0].DayOffset != 7 {
		t.Errorf("unexpected milestones %+v", p.Milestones)
	}
}

func TestHandler_Create_InvalidFrequency(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(jsonRequest(http.MethodPost, `{"name":"x","category":"MEDICATION","frequencyDays":0}`), httptest.NewRecorder())
	if code := statusOf(t, h.Create(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_Create_Duplicate(t *testing.T) {
	h, e := newTestHandler()
	_ = h.svc.Create(context.Background(), &Protocol{Name: "GH", Category: CategoryMedication, FrequencyDays: 30})

	c := e.NewContext(jsonRequest(http.MethodPost, `{"name":"GH","category":"MEDICATION","frequencyDays":30}`), httptest.NewRecorder())
	if code := statusOf(t, h.Create(c)); code != http.StatusConflict {
		t.Errorf("expected 409, got %d", code)
	}
}

func TestHandler_Get_NotFoundAndInvalid(t *testing.T) {
	h, e := newTestHandler()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	if code := statusOf(t, h.Get(c)); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")
	if code := statusOf(t, h.Get(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_UpdateAndDelete(t *testing.T) {
	h, e := newTestHandler()
	p := &Protocol{Name: "GH", Category: CategoryMedication, FrequencyDays: 30}
	_ = h.svc.Create(context.Background(), p)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPut, `{"frequencyDays":14}`), rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())
	if err := h.Update(c); err != nil {
		t.Fatalf("update: %v", err)
	}
	var got Protocol
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if got.FrequencyDays != 14 {
		t.Errorf("expected frequency 14, got %d", got.FrequencyDays)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())
	if err := h.Delete(c); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}
