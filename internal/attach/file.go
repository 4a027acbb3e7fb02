package attach

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/officetracker/oit/internal/api"
)

// sniffLen is how much of a file content detection looks at.
const sniffLen = 512

// File is a candidate attachment. It implements api.Upload.
type File struct {
	Name string
	Size int64
	Type string
	// Path is the file on disk; empty for in-memory files.
	Path string

	data []byte
}

// FileName returns the name sent to the backend.
func (f File) FileName() string { return f.Name }

// MIMEType returns the detected content type.
func (f File) MIMEType() string { return f.Type }

// Open returns the file contents.
func (f File) Open() (io.ReadCloser, error) {
	if f.Path == "" {
		return io.NopCloser(bytes.NewReader(f.data)), nil
	}
	return os.Open(f.Path)
}

var _ api.Upload = File{}

// FromPath describes the file at path. The type is sniffed from the
// content and falls back to the extension when the content is not
// recognized.
func FromPath(path string) (File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return File{}, err
	}
	defer fh.Close()

	info, err := fh.Stat()
	if err != nil {
		return File{}, err
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", path)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(fh, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return File{}, fmt.Errorf("reading %s: %w", path, err)
	}

	return File{
		Name: filepath.Base(path),
		Size: info.Size(),
		Type: detectType(filepath.Ext(path), head[:n]),
		Path: path,
	}, nil
}

// FromBytes describes an in-memory file.
func FromBytes(name string, data []byte) File {
	return File{
		Name: name,
		Size: int64(len(data)),
		Type: detectType(filepath.Ext(name), data),
		data: data,
	}
}

func detectType(ext string, head []byte) string {
	if len(head) > 0 {
		t := http.DetectContentType(head)
		if !strings.HasPrefix(t, "application/octet-stream") && !strings.HasPrefix(t, "text/plain") {
			t, _, _ = strings.Cut(t, ";")
			return t
		}
	}
	if t := mime.TypeByExtension(strings.ToLower(ext)); t != "" {
		t, _, _ = strings.Cut(t, ";")
		return t
	}
	return "application/octet-stream"
}

// FromPaths describes several files, stopping at the first unreadable one.
func FromPaths(paths []string) ([]File, error) {
	files := make([]File, 0, len(paths))
	for _, p := range paths {
		f, err := FromPath(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// Uploads converts files for api.Client.CreateIssue and UpdateIssue.
func Uploads(files []File) []api.Upload {
	out := make([]api.Upload, len(files))
	for i, f := range files {
		out[i] = f
	}
	return out
}
