package filestorage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/comfygate/comfy-gateway/internal/config"
)

type LocalFileStorage struct {
	assetsDir string
	host      string
	port      int
}

func NewLocalFileStorage(cfg *config.Config) (*LocalFileStorage, error) {
	return &LocalFileStorage{
		assetsDir: cfg.AssetsDir,
		host:      cfg.Host,
		port:      cfg.Port,
	}, nil
}

func (u *LocalFileStorage) Upload(file FileInfo) (string, error) {
	filedest := filepath.Join(u.assetsDir, fmt.Sprintf("%s%s", file.Name, file.Extension))

	if err := os.MkdirAll(filepath.Dir(filedest), os.ModePerm); err != nil {
		return "", err
	}

	if file.Kind == FileKindBytes {
		if err := os.WriteFile(filedest, file.Content.([]byte), os.FileMode(0644)); err != nil {
			return "", err
		}
	} else if file.Kind == FileKindStream {
		if err := writeStreamFile(filedest, file.Content.(io.Reader)); err != nil {
			return "", err
		}
	} else {
		return "", ErrUnknownFileKind
	}

	return fmt.Sprintf("http://%s:%d/file/%s%s", u.host, u.port, file.Name, file.Extension), nil
}

func (u *LocalFileStorage) GetFile(filename string) (*FileInfo, error) {
	content, err := os.ReadFile(filepath.Join(u.assetsDir, filename))
	if err != nil {
		return nil, err
	}

	return &FileInfo{
		Name:      filename,
		Extension: filepath.Ext(filename),
		Kind:      FileKindBytes,
		Content:   content,
	}, nil
}

func (u *LocalFileStorage) ResolveFile(filename string) (string, error) {
	resolved := filepath.Join(u.assetsDir, filename)

	if _, err := os.Stat(resolved); err != nil {
		return "", err
	}

	return resolved, nil
}

func writeStreamFile(filedest string, content io.Reader) error {
	file, err := os.Create(filedest)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, content); err != nil {
		return fmt.Errorf("failed to save content to file: %w", err)
	}

	return nil
}
