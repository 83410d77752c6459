package reports

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"biblios-backend/internal/platform/web"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.GET("/reports/most-borrowed", h.MostBorrowed)
	r.GET("/reports/checked-out", h.CheckedOut)
	r.GET("/reports/loans-by-patron", h.LoansByPatron)
	r.GET("/reports/books-by-category", h.BooksByCategory)
	r.GET("/reports/activity", h.Activity)
}

func (h *Handler) MostBorrowed(c *gin.Context) {
	res, err := h.svc.TopBorrowed(c.Request.Context())
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) CheckedOut(c *gin.Context) {
	res, err := h.svc.CheckedOut(c.Request.Context())
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) LoansByPatron(c *gin.Context) {
	res, err := h.svc.LoansByPatron(c.Request.Context())
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) BooksByCategory(c *gin.Context) {
	res, err := h.svc.BooksByCategory(c.Request.Context())
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Activity(c *gin.Context) {
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
	res, err := h.svc.Activity(c.Request.Context(), from, to)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
