package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"doclib/internal/apperr"
	"doclib/internal/archive"
	"doclib/internal/model"
	"doclib/internal/repository"
	"doclib/internal/storage"
)

const defaultListLimit = 100

// DocumentService defines the use cases for the document library.
type DocumentService interface {
	// Upload classifies the file as PDF, single JPG, or ZIP-of-JPGs, stores
	// the bytes (extracting ZIPs into a page directory), and persists the
	// metadata row only after storage fully succeeded.
	Upload(ctx context.Context, r io.Reader, title, originalFilename, contentType string, size int64) (*model.Document, error)

	// List returns documents newest first using limit/offset.
	List(ctx context.Context, limit, offset int) ([]model.Document, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id string) (*model.Document, error)

	// Content returns the raw bytes of a PDF/JPG document. ZIP documents are
	// paged and must be read through Pages/PageContent.
	Content(ctx context.Context, id string) (io.ReadCloser, *model.Document, error)

	// Pages lists a ZIP document's pages in index order. The listing is
	// recomputed from storage on every call; indices are stable because
	// stored documents are never modified after creation.
	Pages(ctx context.Context, id string) ([]model.Page, error)

	// PageContent returns one page image by 0-based position.
	PageContent(ctx context.Context, id string, index int) (io.ReadCloser, *model.Page, error)

	// Delete removes a document's stored bytes and its metadata row.
	// Administrative operation; documents are otherwise immutable.
	Delete(ctx context.Context, id string) error
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store storage.Storage
	repo  repository.DocumentRepository
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository) DocumentService {
	return &documentService{store: store, repo: repo}
}

func (s *documentService) Upload(ctx context.Context, r io.Reader, title, originalFilename, contentType string, size int64) (*model.Document, error) {
	if r == nil {
		return nil, apperr.Validation("file is required")
	}
	if strings.TrimSpace(title) == "" {
		return nil, apperr.Validation("title is required")
	}

	kind, err := Classify(contentType, originalFilename)
	if err != nil {
		return nil, err
	}

	base := uuid.New().String()

	var (
		mimeType   string
		extension  string
		storedName string
	)

	switch kind {
	case KindZip:
		// Pages are extracted straight from the upload buffer; no staging
		// copy of the archive is kept around to clean up afterwards.
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, apperr.Storage("cannot read uploaded file", err)
		}
		if _, err := archive.Extract(ctx, data, s.store, base); err != nil {
			// Extraction is non-atomic; discard whatever pages were written.
			if rmErr := s.store.RemoveAll(ctx, base); rmErr != nil {
				return nil, apperr.Storage("cleanup after failed extraction", errors.Join(err, rmErr))
			}
			return nil, err
		}
		mimeType, extension, storedName = model.MimeZIP, ".zip", base
	case KindPDF:
		mimeType, extension = model.MimePDF, ".pdf"
		storedName = base + extension
	default:
		mimeType, extension = model.MimeJPEG, ".jpg"
		storedName = base + extension
	}

	if kind != KindZip {
		if _, err := s.store.Put(ctx, storedName, r, storage.PutObjectOptions{
			Size:        size,
			ContentType: mimeType,
		}); err != nil {
			return nil, apperr.Storage("cannot store uploaded file", err)
		}
	}

	doc := &model.Document{
		ID:         uuid.New().String(),
		Title:      title,
		MimeType:   mimeType,
		Extension:  extension,
		StoredName: storedName,
		CreatedAt:  time.Now().UTC(),
	}
	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		// Roll back stored bytes so a failed insert leaves no orphans.
		if rbErr := s.rollbackStored(ctx, kind, storedName); rbErr != nil {
			return nil, apperr.Storage("db save failed; rollback delete failed", errors.Join(err, rbErr))
		}
		return nil, apperr.Internal("db save failed", err)
	}
	return stored, nil
}

func (s *documentService) rollbackStored(ctx context.Context, kind Kind, storedName string) error {
	if kind == KindZip {
		return s.store.RemoveAll(ctx, storedName)
	}
	return s.store.Delete(ctx, storedName)
}

// List returns documents newest first.
func (s *documentService) List(ctx context.Context, limit, offset int) ([]model.Document, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, apperr.Internal("list documents", err)
	}
	return res.Items, nil
}

// Get returns a document by ID.
func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, apperr.Validation("id is required")
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("Document not found")
		}
		return nil, apperr.Internal("find document", err)
	}
	return doc, nil
}

// Content returns the raw bytes of a PDF/JPG document as a streaming reader.
func (s *documentService) Content(ctx context.Context, id string) (io.ReadCloser, *model.Document, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if doc.IsZip() {
		return nil, nil, apperr.Validation("ZIP content is paged. Use /pages endpoint")
	}

	rc, _, err := s.store.Get(ctx, doc.StoredName)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, nil, apperr.NotFound("Stored file not found")
		}
		return nil, nil, apperr.Storage("read stored file", err)
	}
	return rc, doc, nil
}

// Pages derives the page listing for a ZIP document from storage.
func (s *documentService) Pages(ctx context.Context, id string) ([]model.Page, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	keys, err := s.pageKeys(ctx, doc)
	if err != nil {
		return nil, err
	}

	pages := make([]model.Page, 0, len(keys))
	for index, key := range keys {
		pages = append(pages, model.Page{
			Index:      index,
			Filename:   path.Base(key),
			ContentURL: fmt.Sprintf("/documents/%s/pages/%d/content", doc.ID, index),
		})
	}
	return pages, nil
}

// PageContent resolves one page by position against the freshly derived listing.
func (s *documentService) PageContent(ctx context.Context, id string, index int) (io.ReadCloser, *model.Page, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	keys, err := s.pageKeys(ctx, doc)
	if err != nil {
		return nil, nil, err
	}
	if index < 0 || index >= len(keys) {
		return nil, nil, apperr.NotFound("Page not found")
	}

	key := keys[index]
	rc, _, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, nil, apperr.NotFound("Page not found")
		}
		return nil, nil, apperr.Storage("read page file", err)
	}
	return rc, &model.Page{
		Index:      index,
		Filename:   path.Base(key),
		ContentURL: fmt.Sprintf("/documents/%s/pages/%d/content", doc.ID, index),
	}, nil
}

// pageKeys lists the .jpg keys under the document's page prefix in ascending
// order. Keys are zero-padded fixed width, so lexical order is page order.
func (s *documentService) pageKeys(ctx context.Context, doc *model.Document) ([]string, error) {
	if !doc.IsZip() {
		return nil, apperr.Validation("Document is not ZIP")
	}

	infos, err := s.store.List(ctx, doc.StoredName+"/")
	if err != nil {
		return nil, apperr.Storage("list pages", err)
	}

	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		if strings.EqualFold(path.Ext(info.Key), archive.PageExt) {
			keys = append(keys, info.Key)
		}
	}
	if len(keys) == 0 {
		return nil, apperr.NotFound("ZIP pages not found")
	}
	return keys, nil
}

// Delete removes stored bytes first, then the metadata row.
func (s *documentService) Delete(ctx context.Context, id string) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if doc.IsZip() {
		if err := s.store.RemoveAll(ctx, doc.StoredName); err != nil {
			return apperr.Storage("delete pages", err)
		}
	} else {
		if err := s.store.Delete(ctx, doc.StoredName); err != nil {
			return apperr.Storage("delete stored file", err)
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperr.Internal("delete document row", err)
	}
	return nil
}
