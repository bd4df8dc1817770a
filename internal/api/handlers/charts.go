package handlers

import (
	"errors"
	"io"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/charts"
	apperrors "github.com/frostdev-ops/eventstats-backend-go/pkg/errors"
	"github.com/frostdev-ops/eventstats-backend-go/pkg/utils"
)

// maxImportBytes caps an imported chart bundle
const maxImportBytes = 4 << 20

// GetChartTypes lists the registered chart types
func (h *Handlers) GetChartTypes(c *gin.Context) {
	utils.SendSuccess(c, h.registry.List())
}

// GetCharts lists chart configurations; ?active=true keeps active ones only
func (h *Handlers) GetCharts(c *gin.Context) {
	configs, err := h.manager.Charts(c.Request.Context())
	if err != nil {
		utils.SendAppError(c, err)
		return
	}

	if c.Query("active") == "true" {
		active := make([]charts.ChartConfiguration, 0, len(configs))
		for _, cfg := range configs {
			if cfg.IsActive {
				active = append(active, cfg)
			}
		}
		configs = active
	}

	utils.SendSuccessWithMeta(c, configs, gin.H{"count": len(configs)})
}

// GetChart returns one chart configuration
func (h *Handlers) GetChart(c *gin.Context) {
	cfg, err := h.manager.Chart(c.Request.Context(), c.Param("chartId"))
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	utils.SendSuccess(c, cfg)
}

// PutChart creates or replaces a chart configuration
func (h *Handlers) PutChart(c *gin.Context) {
	var cfg charts.ChartConfiguration
	if err := c.ShouldBindJSON(&cfg); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	chartID := c.Param("chartId")
	if cfg.ChartID == "" {
		cfg.ChartID = chartID
	}
	if cfg.ChartID != chartID {
		utils.SendError(c, http.StatusBadRequest, "chartId in body does not match the path")
		return
	}

	if !h.validChart(c, cfg) {
		return
	}
	if err := h.manager.SaveChart(c.Request.Context(), &cfg); err != nil {
		utils.SendAppError(c, err)
		return
	}
	utils.SendSuccess(c, cfg)
}

// DeleteChart removes a chart configuration
func (h *Handlers) DeleteChart(c *gin.Context) {
	chartID := c.Param("chartId")
	if err := h.manager.DeleteChart(c.Request.Context(), chartID); err != nil {
		utils.SendAppError(c, err)
		return
	}
	utils.SendSuccess(c, gin.H{"chartId": chartID, "deleted": true})
}

// ImportCharts stores every chart of a YAML or JSON bundle, sent either as
// the request body or as a multipart "file". Nothing is stored unless the
// whole bundle is valid.
func (h *Handlers) ImportCharts(c *gin.Context) {
	data, filename, err := readUpload(c, maxImportBytes)
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, err.Error())
		return
	}

	format := c.Query("format")
	if format == "" {
		format = charts.FormatFromContentType(c.ContentType(), filename)
	}

	configs, err := charts.ParseConfigurations(data, format)
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, err.Error())
		return
	}

	var problems []string
	for _, cfg := range configs {
		var verr *charts.ValidationError
		if err := h.charts.Validate(cfg); errors.As(err, &verr) {
			for _, p := range verr.Problems {
				problems = append(problems, cfg.ChartID+": "+p)
			}
		}
	}
	if len(problems) > 0 {
		utils.SendValidationError(c, "Chart bundle is invalid", problems)
		return
	}

	ids := make([]string, 0, len(configs))
	for i := range configs {
		if err := h.manager.SaveChart(c.Request.Context(), &configs[i]); err != nil {
			utils.SendAppError(c, err)
			return
		}
		ids = append(ids, configs[i].ChartID)
	}
	sort.Strings(ids)

	h.log.WithFields(logrus.Fields{
		"format": format,
		"count":  len(ids),
	}).Info("Chart bundle imported")

	utils.SendCreated(c, gin.H{"imported": len(ids), "chartIds": ids})
}

func (h *Handlers) validChart(c *gin.Context, cfg charts.ChartConfiguration) bool {
	err := h.charts.Validate(cfg)
	if err == nil {
		return true
	}

	var verr *charts.ValidationError
	if errors.As(err, &verr) {
		utils.SendValidationError(c, apperrors.ErrInvalidChart.Message, verr.Problems)
	} else {
		utils.SendError(c, http.StatusBadRequest, err.Error())
	}
	return false
}

// readUpload returns a multipart "file" part if present, else the raw body
func readUpload(c *gin.Context, limit int64) ([]byte, string, error) {
	if file, header, err := c.Request.FormFile("file"); err == nil {
		defer file.Close()
		data, err := readLimited(file, limit)
		return data, header.Filename, err
	}

	data, err := readLimited(c.Request.Body, limit)
	return data, "", err
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, errors.New("failed to read request body")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("request body too large")
	}
	if len(data) == 0 {
		return nil, errors.New("request body is empty")
	}
	return data, nil
}
