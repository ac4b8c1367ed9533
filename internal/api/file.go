package api

import (
	"io"
	"net/http"
	"path/filepath"

	"github.com/comfygate/comfy-gateway/internal/app"
	"github.com/comfygate/comfy-gateway/internal/config"
	"github.com/comfygate/comfy-gateway/internal/services/filestorage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

// UploadFile stages a caller-provided file (reference images, mostly) and
// returns the URL a workflow can address it by.
func UploadFile(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to parse request body"})
		return
	}

	content, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to open file"})
		return
	}
	defer content.Close()

	fileBytes, err := io.ReadAll(content)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to read file"})
		return
	}

	url := make(chan string)
	app := c.MustGet("app").(*app.App)
	app.Uploader().UploadBytes(fileBytes, filepath.Ext(file.Filename), url)

	uploaded, ok := <-url
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to store file"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"data":   map[string]string{"url": uploaded},
	})
}

func GetFile(c *gin.Context) {
	filename := c.Param("filename")
	app := c.MustGet("app").(*app.App)

	storage, err := filestorage.NewFileStorage(app.Config())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	if app.Config().Filesystem == config.FilesystemLocal {
		path, err := storage.ResolveFile(filename)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"message": "file not found"})
			return
		}

		c.File(path)
		return
	}

	file, err := storage.GetFile(filename)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "file not found"})
		return
	}

	content := file.Content.([]byte)
	c.Data(http.StatusOK, mimetype.Detect(content).String(), content)
}
