package handler

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"doclib/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay thin: parse, delegate to the service, translate errors.
func RegisterRoutes(app *fiber.App, db *sql.DB, docSvc service.DocumentService) {
	app.Get("/health", Health())
	app.Get("/readyz", Readiness(db))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/documents", ListDocuments(docSvc))
	app.Post("/documents", UploadDocument(docSvc))
	app.Get("/documents/:id", GetDocument(docSvc))
	app.Delete("/documents/:id", DeleteDocument(docSvc))
	app.Get("/documents/:id/content", DocumentContent(docSvc))
	app.Get("/documents/:id/pages", ListPages(docSvc))
	app.Get("/documents/:id/pages/:index/content", PageContent(docSvc))
}

// Health is the liveness probe.
// @Summary Liveness
// @Success 200 {object} map[string]string
// @Router /health [get]
func Health() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	}
}

// Readiness checks DB connectivity.
// @Summary Readiness
// @Success 200 {object} map[string]string
// @Failure 503 {object} errorPayload
// @Router /readyz [get]
func Readiness(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.JSON(fiber.Map{"status": "ready"})
	}
}

// ListDocuments returns the document records newest first.
// @Summary List documents
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {array} model.Document
// @Router /documents [get]
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		docs, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(docs)
	}
}

// UploadDocument accepts a multipart file upload plus a title query parameter,
// classifies it as PDF/JPG/ZIP and stores it.
// @Summary Upload a document
// @Accept multipart/form-data
// @Param title query string true "display title"
// @Param file formData file true "PDF, JPG, or ZIP of JPGs"
// @Success 201 {object} model.Document
// @Failure 400 {object} errorPayload
// @Router /documents [post]
func UploadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		title := c.Query("title")
		if title == "" {
			return writeError(c, fiber.StatusBadRequest, "TITLE_REQUIRED", "title is required")
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		doc, err := svc.Upload(c.UserContext(), f, title, fh.Filename, ct, fh.Size)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// GetDocument returns a single document record.
// @Summary Get a document
// @Param id path string true "document id"
// @Success 200 {object} model.Document
// @Failure 404 {object} errorPayload
// @Router /documents/{id} [get]
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := documentID(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(doc)
	}
}

// DocumentContent streams the raw bytes of a PDF or JPG document.
// ZIP documents are paged; their bytes are served per page.
// @Summary Fetch document content
// @Param id path string true "document id"
// @Success 200 {file} binary
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /documents/{id}/content [get]
func DocumentContent(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := documentID(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		rc, doc, err := svc.Content(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}

		c.Set(fiber.HeaderContentType, doc.MimeType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", doc.Title+doc.Extension))
		return c.SendStream(rc)
	}
}

// ListPages lists a ZIP document's pages in reading order.
// @Summary List ZIP pages
// @Param id path string true "document id"
// @Success 200 {array} model.Page
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /documents/{id}/pages [get]
func ListPages(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := documentID(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		pages, err := svc.Pages(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(pages)
	}
}

// PageContent streams one page image of a ZIP document.
// @Summary Fetch one page image
// @Param id path string true "document id"
// @Param index path int true "0-based page index"
// @Success 200 {file} binary
// @Failure 404 {object} errorPayload
// @Router /documents/{id}/pages/{index}/content [get]
func PageContent(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := documentID(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		index, err := strconv.Atoi(c.Params("index"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_INDEX", "invalid page index")
		}

		rc, page, err := svc.PageContent(c.UserContext(), id, index)
		if err != nil {
			return respondError(c, err)
		}

		c.Set(fiber.HeaderContentType, "image/jpeg")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", page.Filename))
		return c.SendStream(rc)
	}
}

// DeleteDocument removes a document and its stored bytes. Administrative use.
// @Summary Delete a document
// @Param id path string true "document id"
// @Success 204
// @Failure 404 {object} errorPayload
// @Router /documents/{id} [delete]
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := documentID(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func documentID(c *fiber.Ctx) (string, error) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", err
	}
	return id, nil
}
