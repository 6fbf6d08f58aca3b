package model

import (
	"errors"
	"mime"
	"strings"
)

var (
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrKindConflict         = errors.New("declared kind conflicts with media type")
)

var allowedVideoTypes = map[string]struct{}{
	"video/mp4":       {},
	"video/mpeg":      {},
	"video/quicktime": {},
	"video/x-msvideo": {},
	"video/webm":      {},
}

var allowedAudioTypes = map[string]struct{}{
	"audio/mpeg": {},
	"audio/mp3":  {},
	"audio/wav":  {},
	"audio/ogg":  {},
	"audio/webm": {},
	"audio/aac":  {},
}

// NormalizeMIME strips parameters and lowercases a content type.
func NormalizeMIME(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		return mediaType
	}
	return strings.ToLower(contentType)
}

// FamilyOfMIME returns the media family of an allow-listed content type.
func FamilyOfMIME(contentType string) (Family, error) {
	mt := NormalizeMIME(contentType)
	if _, ok := allowedVideoTypes[mt]; ok {
		return FamilyVideo, nil
	}
	if _, ok := allowedAudioTypes[mt]; ok {
		return FamilyAudio, nil
	}
	return "", ErrUnsupportedMediaType
}

// Classify decides the kind of an upload from its declared kind and the
// family of its content type. An empty declared kind takes the family's
// default kind; a declared kind from the other family is rejected.
func Classify(declared Kind, family Family) (Kind, error) {
	if family != FamilyVideo && family != FamilyAudio {
		return "", ErrUnsupportedMediaType
	}
	if declared == "" {
		if family == FamilyAudio {
			return KindAudio, nil
		}
		return KindMovie, nil
	}
	if !declared.IsValid() {
		return "", ErrInvalidKind
	}
	if declared.Family() != family {
		return "", ErrKindConflict
	}
	return declared, nil
}
