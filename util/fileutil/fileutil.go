package fileutil

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"github.com/pkppln/depositor/constants"
	"github.com/pkppln/depositor/util"
	"hash"
	"io"
	"io/ioutil"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// Returns true if the file at path exists, false if not.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	if err != nil && os.IsNotExist(err) {
		return false
	}
	return true
}

// FileSize returns the size, in bytes, of the file at path.
func FileSize(path string) (int64, error) {
	finfo, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return finfo.Size(), nil
}

// Expands the tilde in a directory path to the current
// user's home directory. For example, on Linux, ~/data
// would expand to something like /home/josie/data
func ExpandTilde(filePath string) (string, error) {
	if strings.Index(filePath, "~") < 0 {
		return filePath, nil
	}
	usr, err := user.Current()
	if err != nil {
		return "", err
	}
	homeDir := usr.HomeDir + "/"
	expandedDir := strings.Replace(filePath, "~/", homeDir, 1)
	return expandedDir, nil
}

// RecursiveFileList returns a list of all files in path dir
// and its subfolders. It does not return directories.
func RecursiveFileList(dir string) ([]string, error) {
	files := make([]string, 0)
	err := filepath.Walk(dir, func(filePath string, f os.FileInfo, err error) error {
		if f != nil && f.IsDir() == false {
			files = append(files, filePath)
		}
		return nil
	})
	return files, err
}

// Returns true if the path specified by dir has at least minLength
// characters and at least minSeparators path separators. This is
// for testing paths you want pass into os.RemoveAll(), so you don't
// wind up deleting "/" or "/etc" or something catastrophic like that.
func LooksSafeToDelete(dir string, minLength, minSeparators int) bool {
	separator := string(os.PathSeparator)
	separatorCount := (len(dir) - len(strings.Replace(dir, separator, "", -1)))
	return len(dir) >= minLength && separatorCount >= minSeparators
}

// CalculateChecksum calculates the md5 or sha1 checksum of a file.
// Param pathToFile is the path to the file, and algorithm should be
// one of constants.AlgMd5 or constants.AlgSha1, whichever the network
// negotiated for the tenant. Returns the hex-encoded digest or an
// error.
func CalculateChecksum(pathToFile, algorithm string) (string, error) {
	if !util.StringListContains(constants.ChecksumAlgorithms, algorithm) {
		return "", fmt.Errorf("Unsupported algorithm: %s", algorithm)
	}
	var _hash hash.Hash = nil
	if algorithm == constants.AlgMd5 {
		_hash = md5.New()
	} else if algorithm == constants.AlgSha1 {
		_hash = sha1.New()
	} else {
		// In case we someday add a new algorithm to constants.ChecksumAlgorithms
		return "", fmt.Errorf("Need to write in support for new digest algorithm %s", algorithm)
	}
	inputFile, err := os.Open(pathToFile)
	if err != nil {
		return "", err
	}
	defer inputFile.Close()
	io.Copy(_hash, inputFile)
	digest := fmt.Sprintf("%x", _hash.Sum(nil))
	return digest, nil
}

// JsonFileToObject reads the file at absPath and unmarshals it into
// obj. On success, this returns nil and your object will contain the
// data from the file.
func JsonFileToObject(absPath string, obj interface{}) error {
	data, err := ioutil.ReadFile(absPath)
	if err != nil {
		return err
	}
	err = json.Unmarshal(data, obj)
	if err != nil {
		return err
	}
	return nil
}

// ObjectToJsonFile marshals obj and writes it to absPath.
func ObjectToJsonFile(absPath string, obj interface{}) error {
	data, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return err
	}
	return ioutil.WriteFile(absPath, data, 0644)
}
