package fileingest

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileMeta holds metadata about a file to be ingested as a document.
type FileMeta struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// supported maps file extensions to the content type stored with the document.
var supported = map[string]string{
	".txt":  "text/plain",
	".md":   "text/plain",
	".html": "text/html",
	".htm":  "text/html",
}

// ReadFileContent reads the entire content of the file at the given path.
func ReadFileContent(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// DetectContentType maps a file path to a document content type.
// Unknown extensions are treated as plain text.
func DetectContentType(path string) string {
	if ct, ok := supported[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	return "text/plain"
}

// TitleFromPath derives a document title from the file name, without extension.
func TitleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

/*
DiscoverFiles recursively finds all ingestable files under rootDir.

Only files with a supported extension are returned. Files that cannot be
stat'd are skipped.
*/
func DiscoverFiles(rootDir string) ([]FileMeta, error) {
	var files []FileMeta
	err := filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := supported[strings.ToLower(filepath.Ext(d.Name()))]; !ok {
			return nil
		}
		meta, metaErr := ExtractFileMeta(path)
		if metaErr != nil {
			return nil
		}
		files = append(files, meta)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// ExtractFileMeta extracts metadata from a given file path.
func ExtractFileMeta(path string) (FileMeta, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileMeta{}, err
	}
	return FileMeta{
		Path:    path,
		Name:    info.Name(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}
