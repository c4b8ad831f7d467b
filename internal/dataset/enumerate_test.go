package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/andresmejia3/mixres/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumerate(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, dir, "b.png", 40, 20)
	writeTestImage(t, dir, "A.PNG", 30, 10)
	writeTestImage(t, dir, "a.JpEg", 12, 34)
	writeTestImage(t, dir, "c.jpg", 8, 8)
	writeTestFile(t, dir, "notes.txt", []byte("ignore me"))
	writeTestFile(t, dir, "image.gif", []byte("GIF89a"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.png"), 0755))

	records, err := Enumerate(dir)
	require.NoError(t, err)

	// Case-sensitive byte order: upper case sorts before lower case.
	assert.Equal(t, []types.ImageRecord{
		{Name: "A.PNG", Width: 30, Height: 10},
		{Name: "a.JpEg", Width: 12, Height: 34},
		{Name: "b.png", Width: 40, Height: 20},
		{Name: "c.jpg", Width: 8, Height: 8},
	}, records)
}

func TestEnumerate_EmptyInput(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "readme.md", []byte("# nothing"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.jpg"), 0755))

	_, err := Enumerate(dir)
	var emptyErr *EmptyInputError
	require.ErrorAs(t, err, &emptyErr)
	assert.Equal(t, dir, emptyErr.Dir)
}

func TestEnumerate_IOErrors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "nope")
		_, err := Enumerate(missing)
		var ioError *IOError
		require.ErrorAs(t, err, &ioError)
		assert.Equal(t, missing, ioError.Path)
		assert.True(t, os.IsNotExist(ioError.Err))
	})

	t.Run("corrupt image", func(t *testing.T) {
		dir := t.TempDir()
		writeTestImage(t, dir, "good.png", 10, 10)
		writeTestFile(t, dir, "bad.png", []byte("definitely not a png"))

		_, err := Enumerate(dir)
		var ioError *IOError
		require.ErrorAs(t, err, &ioError)
		assert.Equal(t, filepath.Join(dir, "bad.png"), ioError.Path)
		assert.Equal(t, "probe", ioError.Op)
	})
}

func TestIsImageFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"a.png", true},
		{"a.PNG", true},
		{"a.jpg", true},
		{"a.JPEG", true},
		{"a.gif", false},
		{"a.png.bak", false},
		{"png", false},
		{".jpg", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsImageFile(tt.name), tt.name)
	}
}

func TestCountImages(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, dir, "a.png", 4, 4)
	writeTestImage(t, dir, "B.JPG", 4, 4)
	writeTestFile(t, dir, "notes.txt", []byte("x"))
	// Counting does not decode, so a corrupt image still counts.
	writeTestFile(t, dir, "bad.png", []byte("not a png"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.png"), 0755))

	n, err := CountImages(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = CountImages(t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = CountImages(filepath.Join(dir, "missing"))
	var ioError *IOError
	assert.ErrorAs(t, err, &ioError)
}
