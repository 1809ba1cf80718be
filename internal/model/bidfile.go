package model

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// BidFile is a bid document supplied by the caller. The reader returned by
// Open is owned by whoever calls it and must be closed by them.
type BidFile struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// BidFileFromBytes wraps an in-memory document.
func BidFileFromBytes(name string, data []byte) BidFile {
	return BidFile{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// BidFileFromPath wraps a document on disk. The file is not opened until Open is called.
func BidFileFromPath(path string) BidFile {
	return BidFile{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// DedupeBidFiles keeps one file per name. A later file replaces the content
// of an earlier one with the same name but takes over its position.
func DedupeBidFiles(files []BidFile) []BidFile {
	index := make(map[string]int, len(files))
	result := make([]BidFile, 0, len(files))

	for _, file := range files {
		if idx, ok := index[file.Name]; ok {
			result[idx] = file
			continue
		}
		index[file.Name] = len(result)
		result = append(result, file)
	}

	return result
}

// Names returns the file names in order.
func Names(files []BidFile) []string {
	names := make([]string, 0, len(files))
	for _, file := range files {
		names = append(names, file.Name)
	}
	return names
}
