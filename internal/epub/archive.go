package epub

import (
	"archive/zip"
	"context"
	"hash/crc32"
	"io"
	"os"
	"time"
)

const mimetypeContent = "application/epub+zip"

type entry struct {
	name string
	data []byte
}

// spool writes the archive to a temp file under dir and returns its bytes.
// The temp file is removed on every return path.
func spool(ctx context.Context, dir string, modified time.Time, entries []entry) ([]byte, error) {
	f, err := os.CreateTemp(dir, "readstash-*.epub")
	if err != nil {
		return nil, &ArchiveError{Op: "creating temp file", Err: err}
	}
	defer func() {
		f.Close()
		os.Remove(f.Name())
	}()

	if err := writeArchive(ctx, f, modified, entries); err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, &ArchiveError{Op: "rewinding temp file", Err: err}
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, &ArchiveError{Op: "reading temp file", Err: err}
	}
	return data, nil
}

// writeArchive writes the mimetype entry stored and first, then entries
// deflated in order.
func writeArchive(ctx context.Context, w io.Writer, modified time.Time, entries []entry) error {
	zw := zip.NewWriter(w)

	// With CRC and sizes set up front CreateRaw writes no data descriptor.
	mt := []byte(mimetypeContent)
	hdr := &zip.FileHeader{
		Name:               "mimetype",
		Method:             zip.Store,
		CRC32:              crc32.ChecksumIEEE(mt),
		CompressedSize64:   uint64(len(mt)),
		UncompressedSize64: uint64(len(mt)),
		Modified:           modified,
	}
	fw, err := zw.CreateRaw(hdr)
	if err != nil {
		return &ArchiveError{Op: "writing mimetype", Err: err}
	}
	if _, err := fw.Write(mt); err != nil {
		return &ArchiveError{Op: "writing mimetype", Err: err}
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return &ArchiveError{Op: "writing " + e.name, Err: err}
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Deflate, Modified: modified})
		if err != nil {
			return &ArchiveError{Op: "writing " + e.name, Err: err}
		}
		if _, err := fw.Write(e.data); err != nil {
			return &ArchiveError{Op: "writing " + e.name, Err: err}
		}
	}

	if err := zw.Close(); err != nil {
		return &ArchiveError{Op: "finishing archive", Err: err}
	}
	return nil
}
