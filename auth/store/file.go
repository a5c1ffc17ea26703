package store

import (
	"context"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
)

// FileSlots persists each slot as its own object under baseURL. Any scheme
// registered with afs works (local paths, file://, mem://), which makes it a
// lightweight way to survive process restarts in CLI or single-host use.
type FileSlots struct {
	fs      afs.Service
	baseURL string
	options []storage.Option
}

// NewFileSlots creates slots stored under baseURL.
func NewFileSlots(baseURL string, options ...storage.Option) *FileSlots {
	return &FileSlots{
		fs:      afs.New(),
		baseURL: baseURL,
		options: options,
	}
}

func (f *FileSlots) Get(ctx context.Context, key string) (string, bool, error) {
	URL := f.url(key)
	exists, err := f.fs.Exists(ctx, URL, f.options...)
	if err != nil {
		return "", false, err
	}
	if !exists {
		return "", false, nil
	}
	data, err := f.fs.DownloadWithURL(ctx, URL, f.options...)
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

func (f *FileSlots) Set(ctx context.Context, key, value string) error {
	return f.fs.Upload(ctx, f.url(key), 0o600, strings.NewReader(value), f.options...)
}

func (f *FileSlots) Delete(ctx context.Context, key string) error {
	URL := f.url(key)
	exists, err := f.fs.Exists(ctx, URL, f.options...)
	if err != nil || !exists {
		return err
	}
	return f.fs.Delete(ctx, URL, f.options...)
}

func (f *FileSlots) url(key string) string {
	return url.Join(f.baseURL, key+".token")
}
