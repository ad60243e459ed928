package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rpattn/testbed-analytics/internal/analytics"
	"github.com/rpattn/testbed-analytics/internal/domain"
	"github.com/rpattn/testbed-analytics/internal/export"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler serves the analytics endpoints.
type Handler struct {
	service  *analytics.Service
	exporter *export.Service
	logger   *zap.Logger
}

func NewHandler(service *analytics.Service, exporter *export.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, exporter: exporter, logger: logger}
}

// RegisterRoutes attaches every analytics endpoint to rg.
func (h *Handler) RegisterRoutes(rg gin.IRoutes) {
	rg.GET("/users", h.handleUsers)
	rg.GET("/projects", h.handleProjects)
	rg.GET("/slivers", h.handleSlivers)
	rg.GET("/components", h.handleComponents)
	rg.GET("/interfaces", h.handleInterfaces)
	rg.GET("/slices", h.handleSlices)
	rg.GET("/slices/export", h.handleSliceExport)
	rg.GET("/slices_by_project", h.handleSlicesByProject)
	rg.GET("/vms_by_project", h.handleVMsByProject)
	rg.GET("/vm_usage", h.handleVMUsage)
	rg.GET("/resource_usage", h.handleResourceUsage)
	rg.GET("/user_slices", h.handleUserSlices)
	rg.GET("/active_slices_per_rack", h.handleActiveSlices)
	rg.GET("/active_users", h.handleActiveUsers)
	rg.GET("/slice_failures", h.handleSliceFailures)
	rg.GET("/healthz", h.handleHealth)
}

func (h *Handler) handleUsers(c *gin.Context) {
	respond(c, h, func(ctx context.Context) (any, error) {
		return h.service.ListUsers(ctx)
	})
}

func (h *Handler) handleProjects(c *gin.Context) {
	respond(c, h, func(ctx context.Context) (any, error) {
		return h.service.ListProjects(ctx)
	})
}

func (h *Handler) handleSlivers(c *gin.Context) {
	var req analytics.SliverListRequest
	if !h.bind(c, &req) {
		return
	}
	respond(c, h, func(ctx context.Context) (any, error) {
		return h.service.ListSlivers(ctx, req)
	})
}

func (h *Handler) handleComponents(c *gin.Context) {
	respond(c, h, func(ctx context.Context) (any, error) {
		return h.service.ListComponents(ctx)
	})
}

func (h *Handler) handleInterfaces(c *gin.Context) {
	respond(c, h, func(ctx context.Context) (any, error) {
		return h.service.ListInterfaces(ctx)
	})
}

func (h *Handler) handleSlices(c *gin.Context) {
	var req analytics.SliceListRequest
	if !h.bind(c, &req) {
		return
	}
	respond(c, h, func(ctx context.Context) (any, error) {
		return h.service.ListSlices(ctx, req)
	})
}

func (h *Handler) handleSliceExport(c *gin.Context) {
	var req analytics.SliceListRequest
	if !h.bind(c, &req) {
		return
	}
	plan, err := h.exporter.PrepareSlices(req)
	if err != nil {
		h.fail(c, err)
		return
	}

	var buf bytes.Buffer
	written, err := h.exporter.WriteSlices(c.Request.Context(), plan, &buf)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.logger.Debug("slice export written", zap.Int("rows", written), zap.Int("bytes", buf.Len()))
	c.Header("Content-Disposition", `attachment; filename="`+export.Filename(time.Now())+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *Handler) handleSlicesByProject(c *gin.Context) {
	var req analytics.SlicesByProjectRequest
	if !h.bind(c, &req) {
		return
	}
	respond(c, h, func(ctx context.Context) (any, error) {
		return h.service.SlicesByProject(ctx, req)
	})
}

func (h *Handler) handleVMsByProject(c *gin.Context) {
	var req analytics.ProjectRequest
	if !h.bind(c, &req) {
		return
	}
	respond(c, h, func(ctx context.Context) (any, error) {
		return h.service.VMsByProject(ctx, req)
	})
}

func (h *Handler) handleVMUsage(c *gin.Context) {
	var req analytics.TimeRangeRequest
	if !h.bind(c, &req) {
		return
	}
	respond(c, h, func(ctx context.Context) (any, error) {
		return h.service.VMUsage(ctx, req)
	})
}

func (h *Handler) handleResourceUsage(c *gin.Context) {
	var req analytics.ResourceUsageRequest
	if !h.bind(c, &req) {
		return
	}
	respond(c, h, func(ctx context.Context) (any, error) {
		return h.service.ResourceUsage(ctx, req)
	})
}

func (h *Handler) handleUserSlices(c *gin.Context) {
	var req analytics.UserRequest
	if !h.bind(c, &req) {
		return
	}
	respond(c, h, func(ctx context.Context) (any, error) {
		return h.service.UserSlices(ctx, req)
	})
}

func (h *Handler) handleActiveSlices(c *gin.Context) {
	respond(c, h, func(ctx context.Context) (any, error) {
		return h.service.ActiveSlicesPerSite(ctx)
	})
}

func (h *Handler) handleActiveUsers(c *gin.Context) {
	var req analytics.TimeRangeRequest
	if !h.bind(c, &req) {
		return
	}
	respond(c, h, func(ctx context.Context) (any, error) {
		return h.service.ActiveUsers(ctx, req)
	})
}

func (h *Handler) handleSliceFailures(c *gin.Context) {
	respond(c, h, func(ctx context.Context) (any, error) {
		return h.service.SliceFailures(ctx)
	})
}

func (h *Handler) handleHealth(c *gin.Context) {
	if err := h.service.Ping(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		h.fail(c, domain.InvalidArgument("invalid query parameters"))
		return false
	}
	return true
}

func respond(c *gin.Context, h *Handler, call func(ctx context.Context) (any, error)) {
	result, err := call(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// fail renders err as {"error", "code"}. Causes of upstream failures were
// already logged by the service and are not echoed.
func (h *Handler) fail(c *gin.Context, err error) {
	var derr *domain.Error
	status := http.StatusInternalServerError
	body := gin.H{"error": "internal error", "code": "internal"}
	if errors.As(err, &derr) {
		body = gin.H{"error": derr.Message, "code": string(derr.Code)}
		switch derr.Code {
		case domain.CodeInvalidArgument:
			status = http.StatusBadRequest
		case domain.CodeUpstreamFailure:
			status = http.StatusServiceUnavailable
		}
	} else {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, body)
}
