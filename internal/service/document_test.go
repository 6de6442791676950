package service

import (
	"archive/zip"
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"

	"doclib/internal/apperr"
	"doclib/internal/model"
	"doclib/internal/repository"
	repoMocks "doclib/internal/repository/mocks"
	"doclib/internal/storage"
	storeMocks "doclib/internal/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func makeZip(t *testing.T, names ...string) io.Reader {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range names {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte("content of " + name))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf
}

func TestDocumentService_Upload(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		title       string
		filename    string
		contentType string
		size        int64
		setupMocks  func(t *testing.T, mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader
		wantType    apperr.Type
		wantMime    string
	}{
		{
			name:        "pdf happy path",
			title:       "My Book",
			filename:    "book.pdf",
			contentType: "application/pdf",
			size:        9,
			setupMocks: func(t *testing.T, mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				r := strings.NewReader("pdf-bytes")
				mStore.On("Put", ctx, mock.MatchedBy(func(key string) bool {
					return strings.HasSuffix(key, ".pdf")
				}), r, storage.PutObjectOptions{Size: 9, ContentType: model.MimePDF}).
					Return(storage.ObjectInfo{Size: 9}, nil)

				mRepo.On("Create", ctx, mock.MatchedBy(func(doc *model.Document) bool {
					return doc.MimeType == model.MimePDF &&
						doc.Extension == ".pdf" &&
						strings.HasSuffix(doc.StoredName, ".pdf") &&
						doc.Title == "My Book"
				})).Return(&model.Document{ID: "gen-id", MimeType: model.MimePDF}, nil)
				return r
			},
			wantMime: model.MimePDF,
		},
		{
			name:        "single jpg happy path",
			title:       "Scan",
			filename:    "scan.jpg",
			contentType: "image/jpeg",
			size:        3,
			setupMocks: func(t *testing.T, mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				r := strings.NewReader("jpg")
				mStore.On("Put", ctx, mock.MatchedBy(func(key string) bool {
					return strings.HasSuffix(key, ".jpg")
				}), r, storage.PutObjectOptions{Size: 3, ContentType: model.MimeJPEG}).
					Return(storage.ObjectInfo{Size: 3}, nil)
				mRepo.On("Create", ctx, mock.Anything).
					Return(&model.Document{ID: "gen-id", MimeType: model.MimeJPEG}, nil)
				return r
			},
			wantMime: model.MimeJPEG,
		},
		{
			name:        "zip extracts pages before metadata insert",
			title:       "Album",
			filename:    "album.zip",
			contentType: "application/zip",
			setupMocks: func(t *testing.T, mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				mStore.On("Put", ctx, mock.MatchedBy(func(key string) bool {
					return strings.HasSuffix(key, "/000000.jpg")
				}), mock.Anything, mock.Anything).Return(storage.ObjectInfo{}, nil)
				mStore.On("Put", ctx, mock.MatchedBy(func(key string) bool {
					return strings.HasSuffix(key, "/000001.jpg")
				}), mock.Anything, mock.Anything).Return(storage.ObjectInfo{}, nil)

				mRepo.On("Create", ctx, mock.MatchedBy(func(doc *model.Document) bool {
					return doc.MimeType == model.MimeZIP &&
						doc.Extension == ".zip" &&
						!strings.Contains(doc.StoredName, ".")
				})).Return(&model.Document{ID: "gen-id", MimeType: model.MimeZIP}, nil)

				return makeZip(t, "a.jpg", "b.jpg")
			},
			wantMime: model.MimeZIP,
		},
		{
			name:        "zip without jpgs rejected before any metadata row",
			title:       "Empty",
			filename:    "empty.zip",
			contentType: "application/zip",
			setupMocks: func(t *testing.T, mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				// Extraction failed, so the page prefix is discarded; no Create call.
				mStore.On("RemoveAll", ctx, mock.Anything).Return(nil)
				return makeZip(t, "readme.txt")
			},
			wantType: apperr.TypeValidation,
		},
		{
			name:        "corrupt zip rejected",
			title:       "Broken",
			filename:    "broken.zip",
			contentType: "application/zip",
			setupMocks: func(t *testing.T, mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				mStore.On("RemoveAll", ctx, mock.Anything).Return(nil)
				return strings.NewReader("this is not a zip")
			},
			wantType: apperr.TypeFormat,
		},
		{
			name:        "unsupported content type",
			title:       "Text",
			filename:    "notes.txt",
			contentType: "text/plain",
			setupMocks: func(t *testing.T, mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				return strings.NewReader("text")
			},
			wantType: apperr.TypeValidation,
		},
		{
			name:        "missing title",
			title:       "  ",
			filename:    "book.pdf",
			contentType: "application/pdf",
			setupMocks: func(t *testing.T, mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				return strings.NewReader("pdf")
			},
			wantType: apperr.TypeValidation,
		},
		{
			name:        "db save failure rolls back stored file",
			title:       "Book",
			filename:    "book.pdf",
			contentType: "application/pdf",
			size:        3,
			setupMocks: func(t *testing.T, mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				r := strings.NewReader("pdf")
				mStore.On("Put", ctx, mock.Anything, r, mock.Anything).
					Return(storage.ObjectInfo{}, nil)
				mRepo.On("Create", ctx, mock.Anything).
					Return(nil, errors.New("db fail"))
				mStore.On("Delete", ctx, mock.MatchedBy(func(key string) bool {
					return strings.HasSuffix(key, ".pdf")
				})).Return(nil)
				return r
			},
			wantType: apperr.TypeInternal,
		},
		{
			name:        "db save failure on zip removes page prefix",
			title:       "Album",
			filename:    "album.zip",
			contentType: "application/zip",
			setupMocks: func(t *testing.T, mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, nil)
				mRepo.On("Create", ctx, mock.Anything).
					Return(nil, errors.New("db fail"))
				mStore.On("RemoveAll", ctx, mock.Anything).Return(nil)
				return makeZip(t, "a.jpg")
			},
			wantType: apperr.TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := NewDocumentService(mStore, mRepo)

			r := tt.setupMocks(t, mStore, mRepo)

			doc, err := svc.Upload(ctx, r, tt.title, tt.filename, tt.contentType, tt.size)

			if tt.wantType != "" {
				require.Error(t, err)
				assert.True(t, apperr.IsType(err, tt.wantType), "got %v", err)
				assert.Nil(t, doc)
			} else {
				require.NoError(t, err)
				require.NotNil(t, doc)
				assert.Equal(t, tt.wantMime, doc.MimeType)
			}

			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(new(storeMocks.MockStorage), mRepo)

		mRepo.On("FindByID", ctx, "doc-1").
			Return(&model.Document{ID: "doc-1", Title: "Book"}, nil)

		doc, err := svc.Get(ctx, "doc-1")
		require.NoError(t, err)
		assert.Equal(t, "Book", doc.Title)
	})

	t.Run("missing row maps to not found", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(new(storeMocks.MockStorage), mRepo)

		mRepo.On("FindByID", ctx, "nope").Return(nil, sql.ErrNoRows)

		_, err := svc.Get(ctx, "nope")
		assert.True(t, apperr.IsType(err, apperr.TypeNotFound))
	})

	t.Run("empty id", func(t *testing.T) {
		svc := NewDocumentService(new(storeMocks.MockStorage), new(repoMocks.MockDocumentRepository))
		_, err := svc.Get(ctx, "")
		assert.True(t, apperr.IsType(err, apperr.TypeValidation))
	})
}

func TestDocumentService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("applies default limit", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(new(storeMocks.MockStorage), mRepo)

		mRepo.On("List", ctx, repository.PageQuery{Limit: defaultListLimit, Offset: 0}).
			Return(&repository.PageResult[model.Document]{Items: []model.Document{{ID: "a"}}, Total: 1}, nil)

		docs, err := svc.List(ctx, 0, -5)
		require.NoError(t, err)
		assert.Len(t, docs, 1)
		mRepo.AssertExpectations(t)
	})

	t.Run("repository error", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(new(storeMocks.MockStorage), mRepo)

		mRepo.On("List", ctx, mock.Anything).Return(nil, errors.New("db fail"))

		_, err := svc.List(ctx, 10, 0)
		assert.Error(t, err)
	})
}

func TestDocumentService_Content(t *testing.T) {
	ctx := context.Background()

	t.Run("streams pdf bytes", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mRepo)

		doc := &model.Document{ID: "doc-1", MimeType: model.MimePDF, StoredName: "abc.pdf"}
		mRepo.On("FindByID", ctx, "doc-1").Return(doc, nil)
		mStore.On("Get", ctx, "abc.pdf").
			Return(io.NopCloser(strings.NewReader("pdf-bytes")), storage.ObjectInfo{Size: 9}, nil)

		rc, got, err := svc.Content(ctx, "doc-1")
		require.NoError(t, err)
		defer rc.Close()

		b, _ := io.ReadAll(rc)
		assert.Equal(t, "pdf-bytes", string(b))
		assert.Equal(t, doc.ID, got.ID)
	})

	t.Run("zip content is paged", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(new(storeMocks.MockStorage), mRepo)

		mRepo.On("FindByID", ctx, "doc-z").
			Return(&model.Document{ID: "doc-z", MimeType: model.MimeZIP, StoredName: "zdir"}, nil)

		_, _, err := svc.Content(ctx, "doc-z")
		assert.True(t, apperr.IsType(err, apperr.TypeValidation))
	})

	t.Run("stored file missing", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mRepo)

		mRepo.On("FindByID", ctx, "doc-1").
			Return(&model.Document{ID: "doc-1", MimeType: model.MimePDF, StoredName: "abc.pdf"}, nil)
		mStore.On("Get", ctx, "abc.pdf").
			Return(nil, storage.ObjectInfo{}, storage.ErrNotExist)

		_, _, err := svc.Content(ctx, "doc-1")
		assert.True(t, apperr.IsType(err, apperr.TypeNotFound))
	})
}

func TestDocumentService_Pages(t *testing.T) {
	ctx := context.Background()
	zipDoc := &model.Document{ID: "doc-z", MimeType: model.MimeZIP, StoredName: "zdir"}

	t.Run("lists pages in key order with content urls", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mRepo)

		mRepo.On("FindByID", ctx, "doc-z").Return(zipDoc, nil)
		mStore.On("List", ctx, "zdir/").Return([]storage.ObjectInfo{
			{Key: "zdir/000000.jpg"},
			{Key: "zdir/000001.jpg"},
			{Key: "zdir/notes.txt"}, // ignored
		}, nil)

		pages, err := svc.Pages(ctx, "doc-z")
		require.NoError(t, err)
		require.Len(t, pages, 2)
		assert.Equal(t, 0, pages[0].Index)
		assert.Equal(t, "000000.jpg", pages[0].Filename)
		assert.Equal(t, "/documents/doc-z/pages/0/content", pages[0].ContentURL)
		assert.Equal(t, 1, pages[1].Index)
	})

	t.Run("non-zip document rejected", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(new(storeMocks.MockStorage), mRepo)

		mRepo.On("FindByID", ctx, "doc-p").
			Return(&model.Document{ID: "doc-p", MimeType: model.MimePDF, StoredName: "p.pdf"}, nil)

		_, err := svc.Pages(ctx, "doc-p")
		assert.True(t, apperr.IsType(err, apperr.TypeValidation))
	})

	t.Run("empty page directory is not found", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mRepo)

		mRepo.On("FindByID", ctx, "doc-z").Return(zipDoc, nil)
		mStore.On("List", ctx, "zdir/").Return([]storage.ObjectInfo{}, nil)

		_, err := svc.Pages(ctx, "doc-z")
		assert.True(t, apperr.IsType(err, apperr.TypeNotFound))
	})
}

func TestDocumentService_PageContent(t *testing.T) {
	ctx := context.Background()
	zipDoc := &model.Document{ID: "doc-z", MimeType: model.MimeZIP, StoredName: "zdir"}
	listing := []storage.ObjectInfo{
		{Key: "zdir/000000.jpg"},
		{Key: "zdir/000001.jpg"},
	}

	t.Run("returns the requested page", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mRepo)

		mRepo.On("FindByID", ctx, "doc-z").Return(zipDoc, nil)
		mStore.On("List", ctx, "zdir/").Return(listing, nil)
		mStore.On("Get", ctx, "zdir/000001.jpg").
			Return(io.NopCloser(strings.NewReader("page-2")), storage.ObjectInfo{}, nil)

		rc, page, err := svc.PageContent(ctx, "doc-z", 1)
		require.NoError(t, err)
		defer rc.Close()

		b, _ := io.ReadAll(rc)
		assert.Equal(t, "page-2", string(b))
		assert.Equal(t, 1, page.Index)
		assert.Equal(t, "000001.jpg", page.Filename)
	})

	t.Run("index out of range", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mRepo)

		mRepo.On("FindByID", ctx, "doc-z").Return(zipDoc, nil)
		mStore.On("List", ctx, "zdir/").Return(listing, nil)

		_, _, err := svc.PageContent(ctx, "doc-z", 2)
		assert.True(t, apperr.IsType(err, apperr.TypeNotFound))

		_, _, err = svc.PageContent(ctx, "doc-z", -1)
		assert.True(t, apperr.IsType(err, apperr.TypeNotFound))
	})
}

func TestDocumentService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("zip removes page prefix then row", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mRepo)

		mRepo.On("FindByID", ctx, "doc-z").
			Return(&model.Document{ID: "doc-z", MimeType: model.MimeZIP, StoredName: "zdir"}, nil)
		mStore.On("RemoveAll", ctx, "zdir").Return(nil)
		mRepo.On("Delete", ctx, "doc-z").Return(nil)

		require.NoError(t, svc.Delete(ctx, "doc-z"))
		mStore.AssertExpectations(t)
		mRepo.AssertExpectations(t)
	})

	t.Run("file delete", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mRepo)

		mRepo.On("FindByID", ctx, "doc-1").
			Return(&model.Document{ID: "doc-1", MimeType: model.MimePDF, StoredName: "a.pdf"}, nil)
		mStore.On("Delete", ctx, "a.pdf").Return(nil)
		mRepo.On("Delete", ctx, "doc-1").Return(nil)

		require.NoError(t, svc.Delete(ctx, "doc-1"))
	})

	t.Run("missing document", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(new(storeMocks.MockStorage), mRepo)

		mRepo.On("FindByID", ctx, "nope").Return(nil, sql.ErrNoRows)

		err := svc.Delete(ctx, "nope")
		assert.True(t, apperr.IsType(err, apperr.TypeNotFound))
	})
}
