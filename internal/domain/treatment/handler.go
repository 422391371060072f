package treatment

import (
	"net/http"
	"strconv"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/DarkMage108/medical-service-backend/internal/platform/apperr"
	"github.com/DarkMage108/medical-service-backend/internal/platform/auth"
	"github.com/DarkMage108/medical-service-backend/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleNurse, auth.RoleSecretary))
	read.GET("/treatments", h.ListTreatments)
	read.GET("/treatments/:id", h.GetTreatment)
	read.GET("/doses", h.ListDoses)
	read.GET("/doses/:id", h.GetDose)
	read.PATCH("/doses/:id/survey", h.UpdateSurvey)

	care := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleNurse))
	care.POST("/doses", h.CreateDose)
	care.PUT("/doses/:id", h.UpdateDose)
	care.DELETE("/doses/:id", h.DeleteDose)

	plan := api.Group("", auth.RequireRole(auth.RoleDoctor))
	plan.POST("/treatments", h.CreateTreatment)
	plan.PUT("/treatments/:id", h.UpdateTreatment)
	plan.DELETE("/treatments/:id", h.DeleteTreatment)
}

// -- Treatments --

func (h *Handler) CreateTreatment(c echo.Context) error {
	var in TreatmentInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t, err := h.svc.CreateTreatment(c.Request().Context(), in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) GetTreatment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	t, err := h.svc.GetTreatment(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) ListTreatments(c echo.Context) error {
	var f TreatmentFilter
	var err error
	if f.PatientID, err = queryUUID(c, "patientId"); err != nil {
		return err
	}
	if f.ProtocolID, err = queryUUID(c, "protocolId"); err != nil {
		return err
	}
	if v := c.QueryParam("status"); v != "" {
		st, err := ParseStatus(v)
		if err != nil {
			return apperr.ToHTTP(err)
		}
		f.Status = st
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListTreatments(c.Request().Context(), f, pg)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if items == nil {
		items = []*Treatment{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) UpdateTreatment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var patch TreatmentPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t, err := h.svc.UpdateTreatment(c.Request().Context(), id, patch)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) DeleteTreatment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteTreatment(c.Request().Context(), id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Doses --

func (h *Handler) CreateDose(c echo.Context) error {
	var in DoseInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := h.svc.CreateDose(c.Request().Context(), in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDose(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.GetDose(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListDoses(c echo.Context) error {
	var f DoseFilter
	var err error
	if f.TreatmentID, err = queryUUID(c, "treatmentId"); err != nil {
		return err
	}
	if v := c.QueryParam("status"); v != "" {
		st, err := ParseDoseStatus(v)
		if err != nil {
			return apperr.ToHTTP(err)
		}
		f.Status = st
	}
	if v := c.QueryParam("paymentStatus"); v != "" {
		ps, err := ParsePaymentStatus(v)
		if err != nil {
			return apperr.ToHTTP(err)
		}
		f.PaymentStatus = ps
	}
	if v := c.QueryParam("nurse"); v != "" {
		nurse, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid nurse flag")
		}
		f.Nurse = &nurse
	}
	if f.FromDate, err = queryDate(c, "fromDate"); err != nil {
		return err
	}
	if f.ToDate, err = queryDate(c, "toDate"); err != nil {
		return err
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDoses(c.Request().Context(), f, pg)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if items == nil {
		items = []*Dose{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) UpdateDose(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var patch DosePatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := h.svc.UpdateDose(c.Request().Context(), id, patch)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteDose(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteDose(c.Request().Context(), id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UpdateSurvey(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var patch SurveyPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := h.svc.UpdateSurvey(c.Request().Context(), id, patch)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func queryUUID(c echo.Context, name string) (*uuid.UUID, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &id, nil
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
