// Package archive turns an uploaded ZIP of JPG images into a deterministic,
// sequentially named page set in the storage backend.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"doclib/internal/apperr"
	"doclib/internal/storage"
)

// PageExt is the extension every extracted page file carries, regardless of
// how the source entry was named.
const PageExt = ".jpg"

// PageName returns the canonical page filename for a 0-based index:
// the index zero-padded to 6 digits plus ".jpg" (000000.jpg, 000001.jpg, ...).
// Fixed-width names make lexical order equal numeric order on later listings.
func PageName(index int) string {
	return fmt.Sprintf("%06d%s", index, PageExt)
}

func isJPG(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".jpg" || ext == ".jpeg"
}

// Extract validates that data is a ZIP archive containing at least one JPG
// entry, then copies each JPG's bytes verbatim under prefix in the storage
// backend, renamed to contiguous zero-padded indices. It returns the original
// base filenames in assigned-index order (display/audit only; pages are
// addressed by position).
//
// Entries are filtered to files whose extension is .jpg/.jpeg (case-insensitive,
// directory entries excluded) and sorted by lowercased base filename; entries
// with identical lowercased basenames keep their original archive order, so
// extraction is reproducible for any input.
//
// Extraction is not atomic: a failure partway leaves the pages already written.
// Callers that need a clean failure must remove the prefix afterwards.
//
// Error types: apperr.Format for a malformed container, apperr.Validation when
// no JPG entries exist (nothing is written in that case), apperr.Storage for
// write failures.
func Extract(ctx context.Context, data []byte, store storage.Storage, prefix string) ([]string, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, apperr.Format("file is not a valid ZIP archive", err)
	}

	candidates := make([]*zip.File, 0, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if isJPG(f.Name) {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return nil, apperr.Validation("ZIP must contain at least one JPG file")
	}

	// Sort by case-insensitive base filename, not full path. The stable sort
	// preserves archive order for identical lowercased basenames.
	sort.SliceStable(candidates, func(i, j int) bool {
		return strings.ToLower(path.Base(candidates[i].Name)) < strings.ToLower(path.Base(candidates[j].Name))
	})

	prefix = strings.TrimSuffix(prefix, "/")
	names := make([]string, 0, len(candidates))

	for index, member := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, apperr.Storage("extraction cancelled", err)
		}

		if err := copyEntry(ctx, member, store, prefix+"/"+PageName(index)); err != nil {
			return nil, err
		}
		names = append(names, path.Base(member.Name))
	}

	return names, nil
}

// copyEntry streams one archive entry to the storage backend, closing the
// entry reader on every path.
func copyEntry(ctx context.Context, member *zip.File, store storage.Storage, key string) error {
	src, err := member.Open()
	if err != nil {
		return apperr.Format(fmt.Sprintf("cannot read archive entry %s", member.Name), err)
	}
	defer src.Close()

	_, err = store.Put(ctx, key, src, storage.PutObjectOptions{
		Size:        int64(member.UncompressedSize64),
		ContentType: "image/jpeg",
	})
	if err != nil {
		return apperr.Storage(fmt.Sprintf("cannot write page %s", key), err)
	}
	return nil
}
