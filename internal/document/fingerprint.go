package document

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Fingerprint is the hex SHA-256 of the file content. Two uploads with the
// same bytes from the same owner resolve to one document.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// BlobKey addresses an upload by owner and content, so re-uploading the same
// bytes writes the same object.
func BlobKey(owner uuid.UUID, fingerprint, filename string) string {
	return owner.String() + "/" + fingerprint + extension(filename)
}

func extension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

// Title derives a display title from an uploaded filename.
func Title(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', '.':
			return ' '
		}
		return r
	}, base)
	title := strings.Join(strings.Fields(base), " ")
	if title == "" || title == "/" {
		return "Untitled course"
	}
	return title
}
