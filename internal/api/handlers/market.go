package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"entsoe-agent/internal/api/models"
	"entsoe-agent/internal/entsoe"
	"entsoe-agent/internal/export"
	"entsoe-agent/internal/market"
	"entsoe-agent/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MarketHandler serves product data and the analysis views.
type MarketHandler struct {
	svc    *market.Service
	logger *zap.Logger
}

func NewMarketHandler(svc *market.Service, logger *zap.Logger) *MarketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarketHandler{svc: svc, logger: logger}
}

// GetProduct handles GET /api/v1/data/:product
func (h *MarketHandler) GetProduct(c *gin.Context) {
	var req models.ProductQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	id, ok := market.ResolveProduct(c.Param("product"))
	if !ok {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "UNSUPPORTED_PRODUCT",
				Message: "Unsupported data type: " + c.Param("product"),
				Details: map[string]interface{}{"supported_types": entsoe.ProductIDs()},
			},
		})
		return
	}
	p, _ := entsoe.LookupProduct(id)

	res := h.svc.Get(c.Request.Context(), market.Query{
		Product: id,
		Country: req.Country,
		From:    req.From,
		To:      req.To,
		Span:    spanFor(p, req),
	})

	if req.Format == "csv" && res.OK() {
		name := req.Country
		if id == entsoe.ProductCrossBorderFlow {
			name = req.From + "_" + req.To
		}
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s_%s.csv", id, strings.ToLower(name)))
		c.Status(http.StatusOK)
		if err := export.WritePointsCSV(c.Writer, res.DataPoints); err != nil {
			h.logger.Error("csv export failed", zap.String("product", string(id)), zap.Error(err))
			_ = c.Error(err)
		}
		return
	}
	respondResult(c, res)
}

func spanFor(p entsoe.Product, q models.ProductQuery) int {
	switch p.Window {
	case entsoe.WindowHoursBack:
		return q.HoursBack
	case entsoe.WindowDayBack, entsoe.WindowDaysSpan:
		return q.DaysBack
	case entsoe.WindowHoursAhead:
		return q.HoursAhead
	case entsoe.WindowDaysAhead:
		return q.DaysAhead
	}
	return 0
}

// Countries handles GET /api/v1/countries
func (h *MarketHandler) Countries(c *gin.Context) {
	c.JSON(http.StatusOK, market.SupportedCountries())
}

// Info handles GET /api/v1/info
func (h *MarketHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.APIInfo())
}

// Debug handles GET /api/v1/debug
func (h *MarketHandler) Debug(c *gin.Context) {
	var req models.DebugQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	if req.DataType == "" {
		req.DataType = string(entsoe.ProductLoad)
	}
	info := h.svc.DebugRequest(req.Country, req.DataType, req.ToCountry)
	if info.Status != model.StatusSuccess {
		c.JSON(StatusForKind(info.ErrorKind), info)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Overview handles GET /api/v1/overview
func (h *MarketHandler) Overview(c *gin.Context) {
	var req models.OverviewQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	o := h.svc.Overview(c.Request.Context(), req.Country, req.HoursBack)
	if !o.OK() {
		c.JSON(http.StatusBadRequest, o)
		return
	}
	c.JSON(http.StatusOK, o)
}

// Compare handles GET /api/v1/compare
func (h *MarketHandler) Compare(c *gin.Context) {
	var req models.CompareQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	countries := splitList(req.Countries)
	if len(countries) == 0 {
		badRequest(c, "INVALID_REQUEST", "countries must list at least one country code")
		return
	}
	c.JSON(http.StatusOK, h.svc.Compare(c.Request.Context(), countries, req.HoursBack))
}

// AnalyzeFlows handles GET /api/v1/flows/analysis
func (h *MarketHandler) AnalyzeFlows(c *gin.Context) {
	var req models.FlowAnalysisQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	pairs, skipped := market.ParsePairs(splitList(req.Pairs))
	if len(pairs) == 0 {
		badRequest(c, "INVALID_REQUEST", "pairs must contain at least one pair such as DE-FR")
		return
	}
	fa := h.svc.AnalyzeFlows(c.Request.Context(), pairs, req.HoursBack)
	fa.Skipped = skipped
	c.JSON(http.StatusOK, fa)
}

// Renewables handles GET /api/v1/renewables
func (h *MarketHandler) Renewables(c *gin.Context) {
	var req models.RenewablesQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	out := h.svc.RenewableOutlook(c.Request.Context(), req.Country, req.HoursAhead)
	if out.RawForecast != nil && !out.RawForecast.OK() {
		c.JSON(StatusForKind(out.RawForecast.ErrorKind), out)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Insights handles GET /api/v1/insights
func (h *MarketHandler) Insights(c *gin.Context) {
	var req models.InsightsQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	c.JSON(http.StatusOK, h.svc.MarketInsights(c.Request.Context(), splitList(req.Countries), req.HoursBack))
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
