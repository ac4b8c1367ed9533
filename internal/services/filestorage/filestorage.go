package filestorage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/comfygate/comfy-gateway/internal/config"
)

var ErrUnknownFileKind = errors.New("unknown file kind")

type FileKind int

const (
	FileKindBytes FileKind = iota
	FileKindStream
)

// FileInfo is an input image staged for the executor.
type FileInfo struct {
	Name      string
	Extension string
	Kind      FileKind
	Content   any
}

func NewFileInfo(name string, extension string, content []byte) FileInfo {
	return FileInfo{
		Name:      name,
		Extension: extension,
		Kind:      FileKindBytes,
		Content:   content,
	}
}

// FileStorage places input files where the executor can read them: the local
// input directory, or an S3 bucket the executor pulls from.
type FileStorage interface {
	Upload(file FileInfo) (string, error)
	GetFile(filename string) (*FileInfo, error)
	ResolveFile(filename string) (string, error)
}

func NewFileStorage(cfg *config.Config) (FileStorage, error) {
	filesystem := strings.ToLower(cfg.Filesystem)

	if filesystem == config.FilesystemLocal {
		return NewLocalFileStorage(cfg)
	} else if filesystem == config.FilesystemS3 {
		return NewS3FileStorage(cfg)
	}

	return nil, fmt.Errorf("invalid filesystem type %s", cfg.Filesystem)
}
