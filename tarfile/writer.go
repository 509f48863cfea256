package tarfile

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
)

// Writer writes deposit archives. The paths within the archive always
// use forward slashes, per the tar standard, regardless of host OS.
type Writer struct {
	PathToTarFile string
	tarWriter     *tar.Writer
	tarFile       *os.File
}

func NewWriter(pathToTarFile string) *Writer {
	return &Writer{
		PathToTarFile: pathToTarFile,
	}
}

func (writer *Writer) Open() error {
	tarFile, err := os.Create(writer.PathToTarFile)
	if err != nil {
		return fmt.Errorf("Error creating tar file: %v", err)
	}
	writer.tarFile = tarFile
	writer.tarWriter = tar.NewWriter(tarFile)
	return nil
}

func (writer *Writer) Close() error {
	if writer.tarWriter != nil {
		err := writer.tarWriter.Close()
		if writer.tarFile != nil {
			writer.tarFile.Close()
		}
		return err
	}
	return nil
}

// AddToArchive adds the file at filePath to the archive under
// pathWithinArchive.
func (writer *Writer) AddToArchive(filePath, pathWithinArchive string) error {
	if writer.tarWriter == nil {
		return fmt.Errorf("Underlying TarWriter is nil. Has it been opened?")
	}
	finfo, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("Cannot add '%s' to archive: %v", filePath, err)
	}
	header := &tar.Header{
		Name:    pathWithinArchive,
		Size:    finfo.Size(),
		Mode:    int64(finfo.Mode().Perm()),
		ModTime: finfo.ModTime(),
	}

	// Write the header entry
	if err := writer.tarWriter.WriteHeader(header); err != nil {
		// Most likely error is archive/tar: write after close
		return err
	}

	// Open the file whose data we're going to add.
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	// Copy the contents of the file into the tarWriter.
	bytesWritten, err := io.Copy(writer.tarWriter, file)
	if bytesWritten != header.Size {
		return fmt.Errorf("AddToArchive() copied only %d of %d bytes for file %s",
			bytesWritten, header.Size, filePath)
	}
	if err != nil {
		return fmt.Errorf("Error copying %s into tar archive: %v",
			filePath, err)
	}

	return nil
}
