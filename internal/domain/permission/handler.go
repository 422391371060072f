package permission

import (
	"net/http"

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
	api.GET("/permissions/me", h.Mine)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/permissions", h.All)
	admin.GET("/permissions/:role", h.ForRole)
	admin.PUT("/permissions/:role", h.Update)
	admin.POST("/permissions/:role/reset", h.Reset)
}

func (h *Handler) All(c echo.Context) error {
	all, err := h.svc.All(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": all, "menuItems": MenuItems})
}

func (h *Handler) ForRole(c echo.Context) error {
	set, err := h.svc.ForRole(c.Request().Context(), c.Param("role"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": set, "menuItems": MenuItems})
}

func (h *Handler) Mine(c echo.Context) error {
	menu, err := h.svc.Menu(c.Request().Context(), auth.RolesFromContext(c.Request().Context()))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": menu})
}

type updateRequest struct {
	Permissions Set `json:"permissions"`
}

func (h *Handler) Update(c echo.Context) error {
	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	set, err := h.svc.Update(c.Request().Context(), c.Param("role"), req.Permissions)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": set})
}

func (h *Handler) Reset(c echo.Context) error {
	set, err := h.svc.Reset(c.Request().Context(), c.Param("role"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": set})
}
