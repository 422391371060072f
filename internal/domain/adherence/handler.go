package adherence

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/DarkMage108/medical-service-backend/internal/platform/apperr"
	"github.com/DarkMage108/medical-service-backend/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:id/adherence", h.ForPatient)
	api.POST("/adherence/query", h.Query)
	api.GET("/settings/adherence", h.AdherenceSettings)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/settings", h.ListSettings)
	admin.PUT("/settings", h.UpdateSettings)
}

func (h *Handler) ForPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.ForPatient(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

type queryRequest struct {
	PatientIDs []uuid.UUID `json:"patientIds"`
}

func (h *Handler) Query(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	items, err := h.svc.ForPatients(c.Request().Context(), req.PatientIDs)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items})
}

func (h *Handler) ListSettings(c echo.Context) error {
	items, err := h.svc.ListSettings(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if items == nil {
		items = []Setting{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items})
}

func (h *Handler) AdherenceSettings(c echo.Context) error {
	m, err := h.svc.AdherenceSettings(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": m})
}

type settingsRequest struct {
	Settings map[string]interface{} `json:"settings"`
}

func (h *Handler) UpdateSettings(c echo.Context) error {
	var req settingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	values := make(map[string]string, len(req.Settings))
	for k, v := range req.Settings {
		if v == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "setting "+k+" has no value")
		}
		values[k] = fmt.Sprint(v)
	}
	items, err := h.svc.UpdateSettings(c.Request().Context(), values)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items})
}
