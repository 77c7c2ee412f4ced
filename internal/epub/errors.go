package epub

import (
	"errors"
	"fmt"
)

// ErrUnusableSource marks an img whose src is missing, relative or not
// http(s).
var ErrUnusableSource = errors.New("image source is not an absolute http(s) url")

// ErrNotImage marks a download whose content type is not an image.
var ErrNotImage = errors.New("response is not an image")

// ImageError describes one image that could not be embedded. It is logged
// and the image is omitted; it never fails a build.
type ImageError struct {
	Src string
	Err error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("image %q: %v", e.Src, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }

// ArchiveError means the package could not be written. The build fails and
// any temporary output has been removed.
type ArchiveError struct {
	Op  string
	Err error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("epub archive: %s: %v", e.Op, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }
