package usecase

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"

	"github.com/hszk-dev/mediagate/internal/domain/model"
)

// sniffLimit is how many leading bytes are inspected when the declared
// content type is not trusted.
const sniffLimit = 3072

// resolveMediaType picks the effective content type of an upload: the
// declared type when it is allow-listed, otherwise the sniffed type or one
// of its parents. The returned reader yields the complete upload.
func resolveMediaType(body io.Reader, declared string) (io.Reader, string, model.Family, error) {
	if family, err := model.FamilyOfMIME(declared); err == nil {
		return body, model.NormalizeMIME(declared), family, nil
	}

	head := make([]byte, sniffLimit)
	n, err := io.ReadFull(body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, "", "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return nil, "", "", ErrMissingFile
	}
	full := io.MultiReader(bytes.NewReader(head), body)

	for m := mimetype.Detect(head); m != nil; m = m.Parent() {
		if family, err := model.FamilyOfMIME(m.String()); err == nil {
			return full, model.NormalizeMIME(m.String()), family, nil
		}
	}
	return nil, "", "", model.ErrUnsupportedMediaType
}
