package loans

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"biblios-backend/internal/platform/web"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.POST("/loans", h.Create)
	r.GET("/loans/active", h.ListActive)
	r.GET("/loans/overdue", h.ListOverdue)
	r.GET("/loans/period", h.ListByPeriod)
	r.GET("/loans/book/:book_id", h.ListByBook)
	r.GET("/loans/patron/:patron_id", h.ListByPatron)
	r.GET("/loans/patron/:patron_id/history", h.History)
	r.GET("/loans/patron/:patron_id/active", h.ActiveByPatron)
	r.GET("/loans/:loan_key", h.Get)
	r.PATCH("/loans/:loan_key/return", h.Return)
	r.PATCH("/loans/:loan_key/renew", h.Renew)
	r.DELETE("/loans/:loan_key", h.Delete)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.FailInvalid(c, "invalid json or missing required fields")
		return
	}
	res, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.Header("Location", "/api/v1/loans/"+res.LoanULID)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Get(c *gin.Context) {
	res, err := h.svc.GetByKey(c.Request.Context(), c.Param("loan_key"))
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Return(c *gin.Context) {
	id, ok := h.resolveID(c)
	if !ok {
		return
	}
	res, err := h.svc.Return(c.Request.Context(), id)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Renew(c *gin.Context) {
	id, ok := h.resolveID(c)
	if !ok {
		return
	}
	res, err := h.svc.Renew(c.Request.Context(), id)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := h.resolveID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		web.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListActive(c *gin.Context) {
	p := web.PageFromQuery(c)
	items, total, err := h.svc.ListActive(c.Request.Context(), p)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, web.Paged(items, total, p))
}

func (h *Handler) ListOverdue(c *gin.Context) {
	p := web.PageFromQuery(c)
	items, total, err := h.svc.ListOverdue(c.Request.Context(), p)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, web.Paged(items, total, p))
}

func (h *Handler) ListByPatron(c *gin.Context) {
	patronID, ok := pathID(c, "patron_id")
	if !ok {
		return
	}
	p := web.PageFromQuery(c)
	items, total, err := h.svc.ListByPatron(c.Request.Context(), patronID, c.Query("status"), p)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, web.Paged(items, total, p))
}

func (h *Handler) ListByBook(c *gin.Context) {
	bookID, ok := pathID(c, "book_id")
	if !ok {
		return
	}
	p := web.PageFromQuery(c)
	items, total, err := h.svc.ListByBook(c.Request.Context(), bookID, p)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, web.Paged(items, total, p))
}

func (h *Handler) ListByPeriod(c *gin.Context) {
	from, err := web.ParseDate(c.Query("from"))
	if err != nil {
		web.Fail(c, err)
		return
	}
	to, err := web.ParseDate(c.Query("to"))
	if err != nil {
		web.Fail(c, err)
		return
	}
	p := web.PageFromQuery(c)
	items, total, err := h.svc.ListByPeriod(c.Request.Context(), from, to, p)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, web.Paged(items, total, p))
}

func (h *Handler) History(c *gin.Context) {
	patronID, ok := pathID(c, "patron_id")
	if !ok {
		return
	}
	from, err := web.ParseDate(c.Query("from"))
	if err != nil {
		web.Fail(c, err)
		return
	}
	to, err := web.ParseDate(c.Query("to"))
	if err != nil {
		web.Fail(c, err)
		return
	}
	items, err := h.svc.HistoryByPatron(c.Request.Context(), patronID, from, to)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) ActiveByPatron(c *gin.Context) {
	patronID, ok := pathID(c, "patron_id")
	if !ok {
		return
	}
	items, err := h.svc.ActiveByPatron(c.Request.Context(), patronID)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// resolveID accepts either the numeric id or the public ULID in the path.
func (h *Handler) resolveID(c *gin.Context) (int64, bool) {
	key := c.Param("loan_key")
	if id, err := strconv.ParseInt(key, 10, 64); err == nil && id > 0 {
		return id, true
	}
	res, err := h.svc.GetByKey(c.Request.Context(), key)
	if err != nil {
		web.Fail(c, err)
		return 0, false
	}
	return res.LoanID, true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		web.FailInvalid(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
