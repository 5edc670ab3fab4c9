package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/bookly/internal/apperr"
	"github.com/Skotchmaster/bookly/internal/logging"
	"github.com/Skotchmaster/bookly/internal/models"
	"github.com/Skotchmaster/bookly/internal/mykafka"
	"github.com/Skotchmaster/bookly/internal/repo"
	"github.com/Skotchmaster/bookly/internal/service/search"
	"github.com/Skotchmaster/bookly/internal/util"
)

type BookHandler struct {
	Books    *repo.BookRepo
	Producer *mykafka.Producer
	Search   *search.Service
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func bookUID(c echo.Context) (string, error) {
	raw := c.Param("uid")
	if _, err := uuid.Parse(raw); err != nil {
		return "", apperr.New(apperr.InvalidBookID, "book id must be a valid uuid")
	}
	return raw, nil
}

func (h *BookHandler) publish(c echo.Context, uid string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "book_events", uid, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "topic", "book_events", "error", err)
	}
}

func (h *BookHandler) index(c echo.Context, book *models.Book) {
	if h.Search == nil {
		return
	}
	if err := h.Search.IndexBook(c.Request().Context(), book); err != nil {
		logging.FromContext(c.Request().Context()).Error("book index failed", "uid", book.UID, "error", err)
	}
}

func (h *BookHandler) deindex(c echo.Context, uid string) {
	if h.Search == nil {
		return
	}
	if err := h.Search.DeleteBook(c.Request().Context(), uid); err != nil {
		logging.FromContext(c.Request().Context()).Error("book deindex failed", "uid", uid, "error", err)
	}
}

func (h *BookHandler) List(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	books, total, err := h.Books.List(c.Request().Context(), offset, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": books,
		"meta": echo.Map{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *BookHandler) Get(c echo.Context) error {
	uid, err := bookUID(c)
	if err != nil {
		return err
	}
	book, err := h.Books.ByUID(c.Request().Context(), uid)
	if err != nil {
		if errors.Is(err, repo.ErrBookNotFound) {
			return apperr.New(apperr.BookNotFound, "book not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, book)
}

func (h *BookHandler) Create(c echo.Context) error {
	var req struct {
		Title         string `json:"title"`
		Author        string `json:"author"`
		Publisher     string `json:"publisher"`
		PublishedDate string `json:"published_date"`
		PageCount     int    `json:"page_count"`
		Language      string `json:"language"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.ValidationFailed, "invalid request body")
	}
	if req.Title == "" || req.Author == "" {
		return apperr.New(apperr.ValidationFailed, "title and author are required")
	}
	if req.PageCount <= 0 {
		return apperr.New(apperr.ValidationFailed, "page_count must be greater than zero")
	}

	book := models.Book{
		Title:         req.Title,
		Author:        req.Author,
		Publisher:     req.Publisher,
		PublishedDate: req.PublishedDate,
		PageCount:     req.PageCount,
		Language:      req.Language,
	}
	if err := h.Books.Create(c.Request().Context(), &book); err != nil {
		return err
	}

	h.publish(c, book.UID, map[string]any{
		"type":  "book_created",
		"uid":   book.UID,
		"title": book.Title,
	})
	h.index(c, &book)

	return c.JSON(http.StatusCreated, book)
}

func (h *BookHandler) Patch(c echo.Context) error {
	uid, err := bookUID(c)
	if err != nil {
		return err
	}

	var req struct {
		Title         *string `json:"title"`
		Author        *string `json:"author"`
		Publisher     *string `json:"publisher"`
		PublishedDate *string `json:"published_date"`
		PageCount     *int    `json:"page_count"`
		Language      *string `json:"language"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.ValidationFailed, "invalid request body")
	}

	book, err := h.Books.ByUID(c.Request().Context(), uid)
	if err != nil {
		if errors.Is(err, repo.ErrBookNotFound) {
			return apperr.New(apperr.BookNotFound, "book not found")
		}
		return err
	}

	if req.Title != nil {
		book.Title = *req.Title
	}
	if req.Author != nil {
		book.Author = *req.Author
	}
	if req.Publisher != nil {
		book.Publisher = *req.Publisher
	}
	if req.PublishedDate != nil {
		book.PublishedDate = *req.PublishedDate
	}
	if req.PageCount != nil {
		if *req.PageCount <= 0 {
			return apperr.New(apperr.ValidationFailed, "page_count must be greater than zero")
		}
		book.PageCount = *req.PageCount
	}
	if req.Language != nil {
		book.Language = *req.Language
	}

	if err := h.Books.Save(c.Request().Context(), book); err != nil {
		return err
	}

	h.publish(c, book.UID, map[string]any{
		"type":  "book_updated",
		"uid":   book.UID,
		"title": book.Title,
	})
	h.index(c, book)

	return c.JSON(http.StatusOK, book)
}

func (h *BookHandler) Delete(c echo.Context) error {
	uid, err := bookUID(c)
	if err != nil {
		return err
	}

	if err := h.Books.Delete(c.Request().Context(), uid); err != nil {
		if errors.Is(err, repo.ErrBookNotFound) {
			return apperr.New(apperr.BookNotFound, "book not found")
		}
		return err
	}

	h.publish(c, uid, map[string]any{
		"type": "book_deleted",
		"uid":  uid,
	})
	h.deindex(c, uid)

	return c.NoContent(http.StatusNoContent)
}

func (h *BookHandler) SearchBooks(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return apperr.New(apperr.ValidationFailed, "query parameter q is required")
	}
	if h.Search == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search is not configured")
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, limit := util.Calculate(page, size)

	total, books, err := h.Search.Query(c.Request().Context(), q, from, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"total": total, "books": books})
}
