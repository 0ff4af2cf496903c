package archive

import (
	"os"

	"photodock/internal/media"
	"photodock/internal/services"
)

// FromFiles reads a plain file selection directly. No batching is applied
// since nothing needs decompressing; unsupported extensions are skipped the
// same way archive entries are.
func FromFiles(paths []string) ([]media.Item, error) {
	items := make([]media.Item, 0, len(paths))
	for _, path := range paths {
		if !Accept(path, false) {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, services.Wrap(services.ErrImageLoad, "extract", "stat file", path, err)
		}
		if info.IsDir() {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, services.Wrap(services.ErrImageLoad, "extract", "read file", path, err)
		}
		items = append(items, media.NewItem(path, data))
	}
	return items, nil
}
