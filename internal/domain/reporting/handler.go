package reporting

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lablink/lablink/internal/platform/auth"
	"github.com/lablink/lablink/internal/domain/results"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleLabService))
	g.POST("/reports", h.CreateReport)
	g.POST("/reports/:jobID/process", h.ProcessJob)
	g.POST("/reports/:jobID/items/:itemID/process", h.ProcessItem)
	g.GET("/reports/:jobID/status", h.JobStatus)
}

type createReportRequest struct {
	Items []ItemPayload `json:"items"`
}

func (h *Handler) CreateReport(c echo.Context) error {
	var req createReportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	status, err := h.svc.CreateReport(ctx, req.Items, auth.CallerFromContext(ctx))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, status)
}

func (h *Handler) ProcessJob(c echo.Context) error {
	jobID, err := uuid.Parse(c.Param("jobID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid job id")
	}
	status, err := h.svc.ProcessJob(c.Request().Context(), jobID)
	if err != nil {
		if status == nil {
			return httpError(err)
		}
		// transient item failures: report partial progress
		return c.JSON(http.StatusAccepted, status)
	}
	return c.JSON(http.StatusOK, status)
}

func (h *Handler) ProcessItem(c echo.Context) error {
	jobID, err := uuid.Parse(c.Param("jobID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid job id")
	}
	itemID, err := uuid.Parse(c.Param("itemID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}
	item, err := h.svc.ProcessItem(c.Request().Context(), jobID, itemID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) JobStatus(c echo.Context) error {
	jobID, err := uuid.Parse(c.Param("jobID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid job id")
	}
	status, err := h.svc.Status(c.Request().Context(), jobID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, status)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, results.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, results.ErrBadRequest):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, results.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
