package books

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"biblios-backend/internal/platform/web"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.POST("/books", h.Create)
	r.GET("/books", h.List)
	r.GET("/books/available", h.ListAvailable)
	r.GET("/books/most-borrowed", h.MostBorrowed)
	r.GET("/books/isbn/:isbn", h.GetByISBN)
	r.GET("/books/:book_id", h.GetByID)
	r.PUT("/books/:book_id", h.Update)
	r.DELETE("/books/:book_id", h.Delete)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.FailInvalid(c, "invalid json or missing required fields")
		return
	}
	res, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.Header("Location", "/api/v1/books/"+strconv.FormatInt(res.BookID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := pathID(c, "book_id")
	if !ok {
		return
	}
	var req UpdateBookRequest
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
	id, ok := pathID(c, "book_id")
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

func (h *Handler) GetByISBN(c *gin.Context) {
	res, err := h.svc.GetByISBN(c.Request.Context(), c.Param("isbn"))
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) List(c *gin.Context) {
	f := Filter{
		Title:    c.Query("title"),
		Author:   c.Query("author"),
		ISBN:     c.Query("isbn"),
		Category: c.Query("category"),
	}
	p := web.PageFromQuery(c)
	items, total, err := h.svc.List(c.Request.Context(), f, p)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, web.Paged(items, total, p))
}

func (h *Handler) ListAvailable(c *gin.Context) {
	p := web.PageFromQuery(c)
	items, total, err := h.svc.ListAvailable(c.Request.Context(), p)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, web.Paged(items, total, p))
}

func (h *Handler) MostBorrowed(c *gin.Context) {
	items, err := h.svc.MostBorrowed(c.Request.Context())
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := pathID(c, "book_id")
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
