package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrUnknownContentType = errors.New("unknown mime type")

// Asset is one staged file ready to be written to a store.
type Asset struct {
	Key         string
	Path        string
	ContentType string
	Body        []byte
}

// ReadAsset loads root/key. The content type is checked before the file is
// read so an unpublishable file costs no I/O.
func ReadAsset(root, key string) (Asset, error) {
	path := filepath.Join(root, filepath.FromSlash(key))

	contentType, ok := ContentType(path)
	if !ok {
		return Asset{}, fmt.Errorf("%w for %s", ErrUnknownContentType, path)
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return Asset{}, fmt.Errorf("read asset %s: %w", path, err)
	}

	return Asset{
		Key:         key,
		Path:        path,
		ContentType: contentType,
		Body:        body,
	}, nil
}
