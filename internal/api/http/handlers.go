package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/microfront/internal/domain/host"
)

// Handler exposes the host facade over HTTP.
type Handler struct {
	host *host.Host
}

// NewHandler creates the API handler.
func NewHandler(h *host.Host) *Handler {
	return &Handler{host: h}
}

// Register mounts all app and router routes on the group.
func (h *Handler) Register(r *gin.RouterGroup) {
	r.POST("/apps", h.createApp)
	r.GET("/apps", h.listApps)
	r.GET("/apps/:name", h.getApp)
	r.POST("/apps/:name/mount", h.mountApp)
	r.POST("/apps/:name/unmount", h.unmountApp)
	r.POST("/apps/:name/hide", h.hideApp)
	r.POST("/apps/:name/show", h.showApp)
	r.POST("/prefetch", h.prefetch)
	r.GET("/stats", h.stats)
	r.GET("/router/location", h.routerLocation)
}

func (h *Handler) createApp(c *gin.Context) {
	var req host.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Prefetch = false

	info, err := h.host.CreateApp(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, info)
}

func (h *Handler) listApps(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	c.JSON(http.StatusOK, gin.H{"apps": h.host.List(activeOnly)})
}

func (h *Handler) getApp(c *gin.Context) {
	info, ok := h.host.Get(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "app not found"})
		return
	}
	c.JSON(http.StatusOK, info)
}

type mountRequest struct {
	BaseRoute string `json:"base_route,omitempty"`
}

func (h *Handler) mountApp(c *gin.Context) {
	var req mountRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if err := h.host.Mount(c.Param("name"), req.BaseRoute); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "mounting"})
}

type unmountRequest struct {
	Destroy        bool `json:"destroy,omitempty"`
	KeepRouteState bool `json:"keep_route_state,omitempty"`
}

func (h *Handler) unmountApp(c *gin.Context) {
	var req unmountRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if err := h.host.Unmount(c.Param("name"), req.Destroy, req.KeepRouteState); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unmounted"})
}

func (h *Handler) hideApp(c *gin.Context) {
	if err := h.host.Hide(c.Param("name")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "hidden"})
}

func (h *Handler) showApp(c *gin.Context) {
	if err := h.host.Show(c.Param("name")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "shown"})
}

type prefetchRequest struct {
	Name string `json:"name" binding:"required"`
	URL  string `json:"url" binding:"required"`
}

func (h *Handler) prefetch(c *gin.Context) {
	var req prefetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	_, err := h.host.CreateApp(c.Request.Context(), host.CreateRequest{
		Name:     req.Name,
		URL:      req.URL,
		Prefetch: true,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "prefetching"})
}

func (h *Handler) stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.host.Stats())
}

func (h *Handler) routerLocation(c *gin.Context) {
	browser := h.host.Router().Browser()
	c.JSON(http.StatusOK, gin.H{
		"url":   browser.URL(),
		"state": browser.State(),
	})
}
