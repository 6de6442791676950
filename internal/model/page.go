package model

// Page is one image of a ZIP-type document, derived on every read by listing
// the document's page prefix; pages are never persisted. Index is 0-based and
// contiguous; indices are stable as long as the stored pages are not modified
// after creation (documents are immutable once stored).
type Page struct {
	Index      int    `json:"index"`
	Filename   string `json:"filename"`
	ContentURL string `json:"content_url"`
}
