package model

import (
	"path"

	"github.com/google/uuid"
)

// Object keys always start with the asset id so that every object of an
// asset can be listed or removed by prefix.
const (
	CategoryHLS       = "hls"
	PlaylistFile      = "playlist.m3u8"
	ThumbnailFile     = "thumbnail.jpg"
	MetadataFile      = "metadata.json"
	SegmentFilePrefix = "segment_"
)

// AssetPrefix returns "{assetId}/".
func AssetPrefix(id uuid.UUID) string {
	return id.String() + "/"
}

// HLSPrefix returns "{assetId}/hls/".
func HLSPrefix(id uuid.UUID) string {
	return path.Join(id.String(), CategoryHLS) + "/"
}

// HLSObjectKey returns "{assetId}/hls/{variantPath}".
func HLSObjectKey(id uuid.UUID, variantPath string) string {
	return path.Join(id.String(), CategoryHLS, variantPath)
}

// HLSPlaylistKey returns "{assetId}/hls/{rendition}/playlist.m3u8".
func HLSPlaylistKey(id uuid.UUID, rendition string) string {
	return path.Join(id.String(), CategoryHLS, rendition, PlaylistFile)
}

// ThumbnailKey returns "{assetId}/thumbnail.jpg".
func ThumbnailKey(id uuid.UUID) string {
	return path.Join(id.String(), ThumbnailFile)
}

// MetadataKey returns "{id}/metadata.json".
func MetadataKey(id string) string {
	return path.Join(id, MetadataFile)
}
