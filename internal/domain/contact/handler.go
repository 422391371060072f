package contact

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/DarkMage108/medical-service-backend/internal/platform/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/contacts/upcoming", h.Upcoming)
	api.POST("/contacts/dismiss", h.Dismiss)
	api.GET("/contacts/dismissed", h.ListDismissed)
	api.PUT("/contacts/dismissed/:contactId/feedback", h.UpdateFeedback)
	api.POST("/contacts/dismissed/:contactId/resolve", h.Resolve)
}

func (h *Handler) Upcoming(c echo.Context) error {
	var days *int
	if v := c.QueryParam("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid days")
		}
		days = &n
	}
	items, err := h.svc.Upcoming(c.Request().Context(), days)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items})
}

type dismissRequest struct {
	ContactID string         `json:"contactId"`
	Feedback  *FeedbackInput `json:"feedback"`
}

func (h *Handler) Dismiss(c echo.Context) error {
	var req dismissRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	l, err := h.svc.Dismiss(c.Request().Context(), req.ContactID, req.Feedback)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *Handler) ListDismissed(c echo.Context) error {
	items, err := h.svc.ListDismissed(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if items == nil {
		items = []*DismissedLog{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items})
}

type feedbackRequest struct {
	Feedback FeedbackInput `json:"feedback"`
}

func (h *Handler) UpdateFeedback(c echo.Context) error {
	var req feedbackRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	l, err := h.svc.UpdateFeedback(c.Request().Context(), c.Param("contactId"), req.Feedback)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) Resolve(c echo.Context) error {
	l, err := h.svc.Resolve(c.Request().Context(), c.Param("contactId"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, l)
}
