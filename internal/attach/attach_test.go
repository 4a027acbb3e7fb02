package attach

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func png(name string, size int64) File {
	return File{Name: name, Size: size, Type: "image/png"}
}

func TestBatchTruncatedAndFirstViolationReported(t *testing.T) {
	var candidates []File
	for i := 1; i <= 12; i++ {
		if i == 3 {
			candidates = append(candidates, File{Name: "anim.gif", Size: 2048, Type: "image/gif"})
			continue
		}
		candidates = append(candidates, png(fmt.Sprintf("shot-%02d.png", i), int64(1000+i)))
	}

	res := Validate(nil, candidates)
	require.Len(t, res.Accepted, MaxFiles)
	assert.Equal(t, "shot-01.png", res.Accepted[0].Name)
	assert.Equal(t, "shot-11.png", res.Accepted[9].Name)

	var v *Violation
	require.True(t, errors.As(res.Err, &v))
	assert.Equal(t, ReasonType, v.Reason)
	assert.Equal(t, 2, v.Index)
	assert.Contains(t, v.Error(), "anim.gif")
	assert.Contains(t, v.Error(), "unsupported file type")
}

func TestDuplicateRejected(t *testing.T) {
	existing := []File{png("a.png", 100)}
	res := Validate(existing, []File{png("a.png", 100), png("a.png", 101)})

	require.Len(t, res.Accepted, 1)
	assert.Equal(t, int64(101), res.Accepted[0].Size, "same name with another size is not a duplicate")
	var v *Violation
	require.ErrorAs(t, res.Err, &v)
	assert.Equal(t, ReasonDuplicate, v.Reason)
	assert.Contains(t, v.Error(), "already been added")
	assert.Equal(t, []File{png("a.png", 100)}, existing, "existing files are untouched")
}

func TestDuplicateWithinBatch(t *testing.T) {
	res := Validate(nil, []File{png("b.png", 5), png("b.png", 5)})
	assert.Len(t, res.Accepted, 1)
	var v *Violation
	require.ErrorAs(t, res.Err, &v)
	assert.Equal(t, 1, v.Index)
}

func TestOversizedRejected(t *testing.T) {
	res := Validate(nil, []File{png("big.png", MaxFileSize+1), png("ok.png", MaxFileSize)})
	require.Len(t, res.Accepted, 1)
	assert.Equal(t, "ok.png", res.Accepted[0].Name)
	var v *Violation
	require.ErrorAs(t, res.Err, &v)
	assert.Equal(t, ReasonSize, v.Reason)
	assert.Contains(t, v.Error(), "5.0 MiB")
}

func TestOnlyFirstViolationReported(t *testing.T) {
	res := Validate(nil, []File{
		png("big.png", MaxFileSize+1),
		{Name: "doc.pdf", Size: 10, Type: "application/pdf"},
	})
	assert.Empty(t, res.Accepted)
	var v *Violation
	require.ErrorAs(t, res.Err, &v)
	assert.Equal(t, ReasonSize, v.Reason)
}

func TestTruncationReportedWhenNothingElseFailed(t *testing.T) {
	existing := []File{png("1.png", 1), png("2.png", 2), png("3.png", 3), png("4.png", 4),
		png("5.png", 5), png("6.png", 6), png("7.png", 7), png("8.png", 8)}
	res := Validate(existing, []File{png("9.png", 9), png("10.png", 10), png("11.png", 11), png("12.png", 12)})

	assert.Len(t, res.Accepted, 2)
	var v *Violation
	require.ErrorAs(t, res.Err, &v)
	assert.Equal(t, ReasonLimit, v.Reason)
	assert.Equal(t, 2, v.Dropped)
	assert.Equal(t, 2, v.Index)
	assert.Equal(t, "at most 10 files can be attached; 2 skipped", v.Error())
}

func TestFullBatchAcceptsNothing(t *testing.T) {
	var existing []File
	for i := 0; i < MaxFiles; i++ {
		existing = append(existing, png(fmt.Sprintf("%d.png", i), int64(i)))
	}
	res := Validate(existing, []File{png("new.png", 99)})
	assert.Empty(t, res.Accepted)
	assert.Error(t, res.Err)
}

func TestValidBatchHasNoError(t *testing.T) {
	res := Validate(nil, []File{png("a.png", 1), {Name: "b.jpg", Size: 2, Type: "image/jpeg"}, {Name: "c.webp", Size: 3, Type: "image/webp"}})
	assert.Len(t, res.Accepted, 3)
	assert.NoError(t, res.Err)
}

func TestAllowed(t *testing.T) {
	for _, ok := range []string{"image/png", "IMAGE/JPEG", "image/jpg", "image/webp; q=1"} {
		assert.True(t, Allowed(ok), ok)
	}
	for _, bad := range []string{"image/gif", "", "application/pdf", "image/svg+xml"} {
		assert.False(t, Allowed(bad), bad)
	}
}

func TestFromPath(t *testing.T) {
	dir := t.TempDir()

	sniffed := filepath.Join(dir, "photo.bin")
	require.NoError(t, os.WriteFile(sniffed, append(pngHeader, make([]byte, 100)...), 0o600))
	f, err := FromPath(sniffed)
	require.NoError(t, err)
	assert.Equal(t, "photo.bin", f.Name)
	assert.Equal(t, "image/png", f.Type)
	assert.Equal(t, int64(len(pngHeader)+100), f.Size)

	byExt := filepath.Join(dir, "picture.webp")
	require.NoError(t, os.WriteFile(byExt, []byte("not really an image"), 0o600))
	f, err = FromPath(byExt)
	require.NoError(t, err)
	assert.Equal(t, "image/webp", f.Type)

	rc, err := f.Open()
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "not really an image", string(data))

	_, err = FromPath(dir)
	assert.Error(t, err)
	_, err = FromPath(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

func TestFromBytes(t *testing.T) {
	f := FromBytes("x.png", pngHeader)
	assert.Equal(t, "image/png", f.MIMEType())
	assert.Equal(t, "x.png", f.FileName())
	rc, err := f.Open()
	require.NoError(t, err)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	assert.Equal(t, pngHeader, data)
	assert.Len(t, Uploads([]File{f}), 1)
}
