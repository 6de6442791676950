package service

import (
	"path/filepath"
	"strings"

	"doclib/internal/apperr"
	"doclib/internal/model"
)

// Kind is the upload classification outcome.
type Kind int

const (
	KindPDF Kind = iota
	KindJPEG
	KindZip
)

// zipMimeTypes is the allow-set of content types recognized as ZIP uploads.
// Browsers and mobile clients disagree on which one they send.
var zipMimeTypes = map[string]bool{
	"application/zip":              true,
	"application/x-zip-compressed": true,
	"multipart/x-zip":              true,
}

// isZipUpload recognizes a ZIP by declared content type or by a .zip filename
// extension; either condition suffices, the two are not required to agree.
func isZipUpload(contentType, filename string) bool {
	return zipMimeTypes[contentType] || strings.EqualFold(filepath.Ext(filename), ".zip")
}

// Classify decides among PDF, single JPG, and ZIP-of-JPGs from the declared
// content type and the uploaded filename. Anything outside the supported set
// is rejected before any storage write.
func Classify(contentType, filename string) (Kind, error) {
	switch {
	case isZipUpload(contentType, filename):
		return KindZip, nil
	case contentType == model.MimePDF:
		return KindPDF, nil
	case contentType == model.MimeJPEG:
		return KindJPEG, nil
	default:
		return 0, apperr.Validation("Only PDF/JPG/ZIP(JPG) are supported")
	}
}
