package patrons

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"biblios-backend/internal/platform/web"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.POST("/patrons", h.Create)
	r.GET("/patrons", h.List)
	r.GET("/patrons/active", h.ListActive)
	r.GET("/patrons/email/:email", h.GetByEmail)
	r.GET("/patrons/:patron_id", h.GetByID)
	r.PUT("/patrons/:patron_id", h.Update)
	r.PATCH("/patrons/:patron_id/activate", h.Activate)
	r.PATCH("/patrons/:patron_id/deactivate", h.Deactivate)
	r.DELETE("/patrons/:patron_id", h.Delete)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreatePatronRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.FailInvalid(c, "invalid json or missing required fields")
		return
	}
	res, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.Header("Location", "/api/v1/patrons/"+strconv.FormatInt(res.PatronID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := pathID(c, "patron_id")
	if !ok {
		return
	}
	var req UpdatePatronRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.FailInvalid(c, "invalid json or missing required fields")
		return
	}
	res, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "patron_id")
	if !ok {
		return
	}
	res, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetByEmail(c *gin.Context) {
	res, err := h.svc.GetByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) List(c *gin.Context) {
	f := Filter{
		Name: c.Query("name"),
		Type: c.Query("patron_type"),
	}
	if v := c.Query("active"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.Active = &b
		}
	}
	p := web.PageFromQuery(c)
	items, total, err := h.svc.List(c.Request.Context(), f, p)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, web.Paged(items, total, p))
}

func (h *Handler) ListActive(c *gin.Context) {
	active := true
	p := web.PageFromQuery(c)
	items, total, err := h.svc.List(c.Request.Context(), Filter{Active: &active}, p)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, web.Paged(items, total, p))
}

func (h *Handler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

func (h *Handler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *Handler) setActive(c *gin.Context, active bool) {
	id, ok := pathID(c, "patron_id")
	if !ok {
		return
	}
	res, err := h.svc.SetActive(c.Request.Context(), id, active)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := pathID(c, "patron_id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		web.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		web.FailInvalid(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
