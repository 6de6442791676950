package model

import "time"

// Supported document MIME types. A ZIP document is a container of JPG pages;
// its content is addressed page by page rather than as a single blob.
const (
	MimePDF  = "application/pdf"
	MimeJPEG = "image/jpeg"
	MimeZIP  = "application/zip"
)

// Document represents a stored unit in the library: a PDF, a single JPG, or a
// ZIP-derived set of page images. This is a pure domain model with no
// database-specific dependencies or tags.
//
// StoredName is the storage key the bytes live under: a file key (extension
// included) for PDF/JPG, or a key prefix holding sequentially named page files
// for ZIP. Extension and StoredName are internal and never exposed over the API.
type Document struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	MimeType   string    `json:"mime_type"`
	Extension  string    `json:"-"`
	StoredName string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsZip reports whether the document's content is paged.
func (d *Document) IsZip() bool {
	return d.MimeType == MimeZIP
}
