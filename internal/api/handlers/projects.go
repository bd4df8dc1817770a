package handlers

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/dashboard"
	"github.com/frostdev-ops/eventstats-backend-go/internal/database/models"
	"github.com/frostdev-ops/eventstats-backend-go/pkg/utils"
)

// GetStatistics returns a project's statistics record
func (h *Handlers) GetStatistics(c *gin.Context) {
	projectID := c.Param("projectId")
	stats, err := h.manager.Statistics(c.Request.Context(), projectID)
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	utils.SendSuccess(c, gin.H{"projectId": projectID, "stats": stats})
}

// PatchStatistics sets one or more statistics. Each change is applied in
// key order and pushed to the project's live viewers.
func (h *Handlers) PatchStatistics(c *gin.Context) {
	var request struct {
		Stats map[string]interface{} `json:"stats" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(request.Stats) == 0 {
		utils.SendError(c, http.StatusBadRequest, "stats must not be empty")
		return
	}

	keys := make([]string, 0, len(request.Stats))
	for key := range request.Stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	projectID := c.Param("projectId")
	updates := make([]*dashboard.StatUpdateResult, 0, len(keys))
	layoutChanged := false
	for _, key := range keys {
		update, err := h.publisher.HandleStatUpdate(c.Request.Context(), projectID, key, request.Stats[key])
		if err != nil {
			h.log.WithError(err).WithFields(logrus.Fields{
				"project_id": projectID,
				"stat_key":   key,
			}).Warn("Failed to apply statistic update")
			utils.SendAppError(c, err)
			return
		}
		layoutChanged = layoutChanged || update.LayoutChanged
		updates = append(updates, update)
	}

	utils.SendSuccessWithMeta(c, updates, gin.H{
		"updated":       len(updates),
		"layoutChanged": layoutChanged,
	})
}

// GetLayout returns a project's layout, or the default one
func (h *Handlers) GetLayout(c *gin.Context) {
	rl, err := h.manager.Layout(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	utils.SendSuccess(c, rl)
}

// PutLayout replaces a project's layout
func (h *Handlers) PutLayout(c *gin.Context) {
	var rl models.ReportLayout
	if err := c.ShouldBindJSON(&rl); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	rl.ProjectID = c.Param("projectId")
	rl.GridSettings = rl.GridSettings.Normalize()

	if err := h.layouts.Struct(rl); err != nil {
		utils.SendValidationError(c, "Invalid report layout", []string{err.Error()})
		return
	}
	if err := h.manager.SaveLayout(c.Request.Context(), &rl); err != nil {
		utils.SendAppError(c, err)
		return
	}
	utils.SendSuccess(c, rl)
}

// GetResults calculates every chart in the project's layout
func (h *Handlers) GetResults(c *gin.Context) {
	results, err := h.manager.Results(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	utils.SendSuccess(c, results)
}

// GetReport assembles the project's report at ?width= pixels
func (h *Handlers) GetReport(c *gin.Context) {
	width, ok := h.widthParam(c)
	if !ok {
		return
	}

	report, err := h.manager.Report(c.Request.Context(), c.Param("projectId"), width)
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	utils.SendSuccess(c, report)
}

// ExportCSV streams the rendered charts as CSV, compressed when the
// client accepts it
func (h *Handlers) ExportCSV(c *gin.Context) {
	projectID := c.Param("projectId")
	width, ok := h.widthParam(c)
	if !ok {
		return
	}

	report, err := h.manager.Report(c.Request.Context(), projectID, width)
	if err != nil {
		utils.SendAppError(c, err)
		return
	}

	out, encoding, err := negotiateEncoding(c.Writer, c.GetHeader("Accept-Encoding"))
	if err != nil {
		utils.SendAppError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="report-%s.csv"`, sanitizeFilename(projectID)))
	c.Header("Vary", "Accept-Encoding")
	if encoding != "" {
		c.Header("Content-Encoding", encoding)
	}
	c.Status(http.StatusOK)

	if err := dashboard.WriteCSV(out, report); err != nil {
		h.log.WithError(err).WithField("project_id", projectID).Error("Failed to write CSV export")
	}
	if err := out.Close(); err != nil {
		h.log.WithError(err).WithField("project_id", projectID).Error("Failed to finish CSV export")
	}
}

// ExportXLSX serves the report as a spreadsheet. The workbook is already
// zip-compressed, so no content encoding is negotiated.
func (h *Handlers) ExportXLSX(c *gin.Context) {
	projectID := c.Param("projectId")
	width, ok := h.widthParam(c)
	if !ok {
		return
	}

	report, err := h.manager.Report(c.Request.Context(), projectID, width)
	if err != nil {
		utils.SendAppError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := dashboard.WriteXLSX(&buf, report); err != nil {
		h.log.WithError(err).WithField("project_id", projectID).Error("Failed to write XLSX export")
		utils.SendError(c, http.StatusInternalServerError, "Failed to export report")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="report-%s.xlsx"`, sanitizeFilename(projectID)))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// widthParam reads ?width=, falling back to the default row width
func (h *Handlers) widthParam(c *gin.Context) (float64, bool) {
	raw := c.Query("width")
	if raw == "" {
		return 0, true
	}
	width, err := strconv.ParseFloat(raw, 64)
	if err != nil || width < 0 || math.IsNaN(width) || math.IsInf(width, 0) {
		utils.SendError(c, http.StatusBadRequest, "width must be a non-negative number")
		return 0, false
	}
	return width, true
}

func sanitizeFilename(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
