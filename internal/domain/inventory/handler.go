package inventory

import (
	"net/http"
	"strconv"

	"github.com/golang-sql/civil"
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
	read := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleNurse, auth.RoleSecretary))
	read.GET("/inventory", h.ListLots)
	read.GET("/inventory/available", h.AvailableLots)
	read.GET("/inventory/:id", h.GetLot)
	read.GET("/dispense-logs", h.ListDispenseLogs)

	manage := api.Group("", auth.RequireRole(auth.RoleDoctor))
	manage.POST("/inventory", h.CreateLot)
	manage.PUT("/inventory/:id", h.UpdateLot)
	manage.DELETE("/inventory/:id", h.DeleteLot)
	manage.GET("/dispense-logs/report", h.Report)
}

func (h *Handler) CreateLot(c echo.Context) error {
	var l Lot
	if err := c.Bind(&l); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	out, created, err := h.svc.CreateLot(c.Request().Context(), &l)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if created {
		return c.JSON(http.StatusCreated, out)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) GetLot(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	l, err := h.svc.GetLot(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) ListLots(c echo.Context) error {
	f := LotFilter{Search: c.QueryParam("search")}
	if v := c.QueryParam("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid active flag")
		}
		f.Active = &active
	}
	items, err := h.svc.ListLots(c.Request().Context(), f, c.QueryParam("expired") == "false")
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if c.QueryParam("grouped") == "true" {
		groups := GroupByMedication(items)
		if groups == nil {
			groups = []LotGroup{}
		}
		return c.JSON(http.StatusOK, map[string]interface{}{"data": groups})
	}
	if items == nil {
		items = []*Lot{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items})
}

func (h *Handler) AvailableLots(c echo.Context) error {
	items, err := h.svc.AvailableLots(c.Request().Context(), c.QueryParam("medicationName"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if items == nil {
		items = []*Lot{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items})
}

func (h *Handler) UpdateLot(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var p LotPatch
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	l, err := h.svc.UpdateLot(c.Request().Context(), id, p)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) DeleteLot(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteLot(c.Request().Context(), id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListDispenseLogs(c echo.Context) error {
	q := LogQuery{MedicationName: c.QueryParam("medicationName")}
	if v := c.QueryParam("patientId"); v != "" {
		pid, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patientId")
		}
		q.PatientID = &pid
	}
	var err error
	if q.FromDate, err = queryDate(c, "fromDate"); err != nil {
		return err
	}
	if q.ToDate, err = queryDate(c, "toDate"); err != nil {
		return err
	}

	items, err := h.svc.ListDispenseLogs(c.Request().Context(), q)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if items == nil {
		items = []*DispenseLog{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items})
}

func (h *Handler) Report(c echo.Context) error {
	period, err := ParseReportPeriod(c.QueryParam("period"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	year := 0
	if v := c.QueryParam("year"); v != "" {
		if year, err = strconv.Atoi(v); err != nil || year < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid year")
		}
	}
	rows, err := h.svc.Report(c.Request().Context(), period, year)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": rows})
}

func queryDate(c echo.Context, name string) (*civil.Date, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	d, err := civil.ParseDate(v)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name+": expected YYYY-MM-DD")
	}
	return &d, nil
}
