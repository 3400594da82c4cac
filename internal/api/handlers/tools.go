package handlers

import (
	"errors"
	"net/http"

	"entsoe-agent/internal/agent"
	"entsoe-agent/internal/api/models"

	"github.com/gin-gonic/gin"
)

// ToolHandler exposes the agent tool registry.
type ToolHandler struct {
	registry *agent.Registry
}

func NewToolHandler(registry *agent.Registry) *ToolHandler {
	return &ToolHandler{registry: registry}
}

// ListTools handles GET /api/v1/tools
func (h *ToolHandler) ListTools(c *gin.Context) {
	c.JSON(http.StatusOK, models.ToolListResponse{
		Instructions: agent.Instructions,
		Tools:        h.registry.Tools(),
	})
}

// InvokeTool handles POST /api/v1/tools/:name with a JSON object body.
func (h *ToolHandler) InvokeTool(c *gin.Context) {
	name := c.Param("name")
	raw, err := c.GetRawData()
	if err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	result, err := h.registry.Invoke(c.Request.Context(), name, raw)
	if errors.Is(err, agent.ErrUnknownTool) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "TOOL_NOT_FOUND",
				Message: err.Error(),
			},
		})
		return
	}
	if err != nil {
		badRequest(c, "INVALID_ARGUMENTS", err.Error())
		return
	}
	c.JSON(http.StatusOK, models.ToolResultResponse{Tool: name, Result: result})
}
