package photo

import (
	"encoding/hex"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

const (
	ThumbnailPrefix = "thumb-"

	fileExt         = ".jpg"
	defaultStem     = "photo"
	maxStemLen      = 64
	maxOriginalName = 255
)

// newFileName builds {unixMillis}-{8 random hex}-{stem}.jpg. The random part
// keeps names unique when two uploads land in the same millisecond.
func (uc *UseCase) newFileName(originalName string) string {
	id := uuid.New()

	return fmt.Sprintf("%d-%s-%s%s",
		uc.now().UnixMilli(),
		hex.EncodeToString(id[:4]),
		sanitizeStem(originalName),
		fileExt,
	)
}

// sanitizeStem reduces a client file name to a safe stem: no directories,
// no extension, only [A-Za-z0-9._-].
func sanitizeStem(originalName string) string {
	base := path.Base(strings.ReplaceAll(originalName, `\`, "/"))
	base = strings.TrimSuffix(base, path.Ext(base))

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}

	stem := b.String()
	if len(stem) > maxStemLen {
		stem = stem[:maxStemLen]
	}

	stem = strings.Trim(stem, ".-")
	if stem == "" {
		return defaultStem
	}

	return stem
}

// cleanOriginalName keeps the client name for display only.
func cleanOriginalName(originalName string) string {
	name := strings.TrimSpace(path.Base(strings.ReplaceAll(originalName, `\`, "/")))
	if name == "." || name == "/" {
		name = ""
	}

	runes := []rune(name)
	if len(runes) > maxOriginalName {
		name = string(runes[:maxOriginalName])
	}

	return name
}

func thumbnailKey(displayKey string) string {
	return ThumbnailPrefix + displayKey
}

func (uc *UseCase) publicURL(key string) string {
	return strings.TrimRight(uc.publicPrefix, "/") + "/" + key
}

// keyFromURL recovers the storage key from a stored public URL.
func keyFromURL(url string) string {
	return path.Base(url)
}
