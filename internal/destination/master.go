package destination

import (
	"context"
	"path/filepath"
)

// MasterPublisher writes the stream-root variant playlist.
type MasterPublisher interface {
	PublishMaster(ctx context.Context, playlist []byte) error
}

// MasterLocal publishes the master playlist as a file at the stream root.
type MasterLocal struct {
	Dir string
}

func (m MasterLocal) PublishMaster(ctx context.Context, playlist []byte) error {
	return writeFileAtomic(filepath.Join(m.Dir, "live.m3u8"), playlist)
}

// MasterRemote publishes the master playlist at the object-store root.
type MasterRemote struct {
	Store ObjectStore
}

func (m MasterRemote) PublishMaster(ctx context.Context, playlist []byte) error {
	return m.Store.Put(ctx, "live.m3u8", playlist, PutOptions{
		ContentType:  contentTypePlaylist,
		CacheControl: cacheNone,
	})
}
