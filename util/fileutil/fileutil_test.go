package fileutil_test

import (
	"github.com/pkppln/depositor/constants"
	"github.com/pkppln/depositor/util/fileutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func tempFileWithContent(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))
	return path
}

func TestFileExists(t *testing.T) {
	tempDir, err := ioutil.TempDir("", "fileutil_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	path := tempFileWithContent(t, tempDir, "here.txt", "hello")
	assert.True(t, fileutil.FileExists(path))
	assert.False(t, fileutil.FileExists(filepath.Join(tempDir, "not_here.txt")))
}

func TestFileSize(t *testing.T) {
	tempDir, err := ioutil.TempDir("", "fileutil_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	path := tempFileWithContent(t, tempDir, "sized.txt", "12345")
	size, err := fileutil.FileSize(path)
	require.NoError(t, err)
	assert.EqualValues(t, 5, size)

	_, err = fileutil.FileSize(filepath.Join(tempDir, "not_here.txt"))
	assert.Error(t, err)
}

func TestExpandTilde(t *testing.T) {
	expanded, err := fileutil.ExpandTilde("~/tmp")
	require.NoError(t, err)
	assert.True(t, len(expanded) > len("/tmp"))
	assert.True(t, filepath.IsAbs(expanded))

	expanded, err = fileutil.ExpandTilde("/absolute/path")
	require.NoError(t, err)
	assert.Equal(t, "/absolute/path", expanded)
}

func TestRecursiveFileList(t *testing.T) {
	tempDir, err := ioutil.TempDir("", "fileutil_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	tempFileWithContent(t, tempDir, "one.txt", "1")
	subDir := filepath.Join(tempDir, "sub")
	require.NoError(t, os.MkdirAll(subDir, 0755))
	tempFileWithContent(t, subDir, "two.txt", "2")

	files, err := fileutil.RecursiveFileList(tempDir)
	require.NoError(t, err)
	assert.Equal(t, 2, len(files))
}

func TestLooksSafeToDelete(t *testing.T) {
	assert.True(t, fileutil.LooksSafeToDelete("/mnt/apt/data/some_dir", 15, 3))
	assert.False(t, fileutil.LooksSafeToDelete("/usr/local", 12, 3))
	assert.False(t, fileutil.LooksSafeToDelete("/", 12, 3))
}

func TestCalculateChecksum(t *testing.T) {
	tempDir, err := ioutil.TempDir("", "fileutil_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	path := tempFileWithContent(t, tempDir, "digest.txt", "The quick brown fox")

	md5sum, err := fileutil.CalculateChecksum(path, constants.AlgMd5)
	require.NoError(t, err)
	assert.Equal(t, "a2004f37730b9445670a738fa0fc9ee5", md5sum)

	sha1sum, err := fileutil.CalculateChecksum(path, constants.AlgSha1)
	require.NoError(t, err)
	assert.Equal(t, "c519c1a06cdbeb2bc499e22137fb48683858b345", sha1sum)

	_, err = fileutil.CalculateChecksum(path, "sha512")
	assert.Error(t, err)

	_, err = fileutil.CalculateChecksum(filepath.Join(tempDir, "gone.txt"), constants.AlgMd5)
	assert.Error(t, err)
}

func TestJsonFileRoundTrip(t *testing.T) {
	tempDir, err := ioutil.TempDir("", "fileutil_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	type record struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	path := filepath.Join(tempDir, "record.json")
	require.NoError(t, fileutil.ObjectToJsonFile(path, &record{Name: "x", Count: 3}))

	loaded := &record{}
	require.NoError(t, fileutil.JsonFileToObject(path, loaded))
	assert.Equal(t, "x", loaded.Name)
	assert.Equal(t, 3, loaded.Count)
}
