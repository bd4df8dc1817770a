package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/charts"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/formula"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/layout"
	"github.com/frostdev-ops/eventstats-backend-go/pkg/utils"
)

// ComposeColumns returns the column shares for a row of width weights and,
// when a viewport width is given, the responsive policy at that width
func (h *Handlers) ComposeColumns(c *gin.Context) {
	var request struct {
		Widths     []int    `json:"widths"`
		ViewportPx *float64 `json:"viewportPx"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	body := gin.H{"shares": layout.ComposeColumns(request.Widths)}
	if request.ViewportPx != nil {
		body["policy"] = layout.ResponsivePolicy(*request.ViewportPx, request.Widths, h.manager.Assembler().Breakpoints())
	}
	utils.SendSuccess(c, body)
}

// SolveRow solves one row of cells at a row width
func (h *Handlers) SolveRow(c *gin.Context) {
	var request struct {
		Cells      []layout.CellConfiguration `json:"cells"`
		RowWidthPx float64                    `json:"rowWidthPx"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if request.RowWidthPx < 0 {
		utils.SendError(c, http.StatusBadRequest, "rowWidthPx must not be negative")
		return
	}

	utils.SendSuccess(c, h.manager.Assembler().Solver().SolveRow(request.Cells, request.RowWidthPx))
}

// EvaluateFormula evaluates an expression against the given statistics.
// A missing or non-numeric input yields NA rather than an error.
func (h *Handlers) EvaluateFormula(c *gin.Context) {
	var request struct {
		Formula    string             `json:"formula" binding:"required"`
		Stats      formula.Stats      `json:"stats"`
		Formatting *charts.Formatting `json:"formatting"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	expr, err := formula.Compile(request.Formula)
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid formula: "+err.Error())
		return
	}

	value := expr.Eval(request.Stats)
	var fmtOpts charts.Formatting
	if request.Formatting != nil {
		fmtOpts = *request.Formatting
	}

	utils.SendSuccess(c, gin.H{
		"value":      value,
		"na":         value.IsNA(),
		"formatted":  charts.FormatValue(value, fmtOpts),
		"references": expr.References(),
	})
}
