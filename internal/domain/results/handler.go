package results

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/lablink/lablink/internal/platform/auth"
	"github.com/lablink/lablink/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// All endpoints – admin, lab_service
	g := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleLabService))
	g.GET("/results/history", h.History)
	g.GET("/results/awaiting", h.ListAwaiting)
	g.POST("/results/:barCode", h.RecordResult)
	g.POST("/results/:barCode/confirm", h.ConfirmResult)
	g.POST("/barcodes", h.NewBarcode)
	g.POST("/transport-runs", h.NewTransportRun)
	g.POST("/test-runs", h.CreateTestRun)
}

type recordRequest struct {
	ResultPayload
	Confirmed bool `json:"confirmed"`
}

func (h *Handler) RecordResult(c echo.Context) error {
	barCode := c.Param("barCode")
	if barCode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "barcode is required")
	}
	var req recordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	adminID := auth.CallerFromContext(c.Request().Context())
	rec, err := h.svc.RecordResult(c.Request().Context(), barCode, req.ResultPayload,
		adminID, req.Confirmed, req.Notify)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

type confirmRequest struct {
	Action string `json:"action"`
}

type confirmResponse struct {
	ID string `json:"id"`
}

func (h *Handler) ConfirmResult(c echo.Context) error {
	barCode := c.Param("barCode")
	if barCode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "barcode is required")
	}
	var req confirmRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	// internal service callers are trusted to skip the interactive checks
	byPass := auth.HasRole(ctx, auth.RoleLabService)
	id, err := h.svc.ConfirmResult(ctx, barCode, req.Action, auth.CallerFromContext(ctx), byPass)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, confirmResponse{ID: id.String()})
}

func (h *Handler) History(c echo.Context) error {
	raw := c.QueryParam("barCodes")
	if raw == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "barCodes query parameter is required")
	}
	var barCodes []string
	for _, bc := range strings.Split(raw, ",") {
		if bc = strings.TrimSpace(bc); bc != "" {
			barCodes = append(barCodes, bc)
		}
	}
	history, err := h.svc.HistoryByBarcodes(c.Request().Context(), barCodes)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, history)
}

func (h *Handler) ListAwaiting(c echo.Context) error {
	pg := pagination.FromContext(c)
	records, total, err := h.svc.ListAwaitingConfirmation(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(records, total, pg.Limit, pg.Offset))
}

type barcodeResponse struct {
	BarCode string `json:"bar_code"`
}

func (h *Handler) NewBarcode(c echo.Context) error {
	bc, err := h.svc.NewBarcode(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, barcodeResponse{BarCode: bc})
}

type transportRunResponse struct {
	TransportRunID string `json:"transport_run_id"`
}

func (h *Handler) NewTransportRun(c echo.Context) error {
	id, err := h.svc.NewTransportRunID(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, transportRunResponse{TransportRunID: id})
}

type testRunRequest struct {
	BarCodes []string `json:"bar_codes"`
	LabID    string   `json:"lab_id"`
}

type testRunResponse struct {
	TestRunID string `json:"test_run_id"`
	Assigned  int    `json:"assigned"`
}

func (h *Handler) CreateTestRun(c echo.Context) error {
	var req testRunRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	id, count, err := h.svc.CreateTestRun(c.Request().Context(), req.BarCodes, req.LabID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, testRunResponse{TestRunID: id, Assigned: count})
}

// httpError maps domain errors onto HTTP status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrBadRequest):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
