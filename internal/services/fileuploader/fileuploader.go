package fileuploader

import (
	"github.com/comfygate/comfy-gateway/internal/services/filestorage"
	"github.com/comfygate/comfy-gateway/internal/utils/hashutil"
	"github.com/gammazero/workerpool"
)

// Uploader stages input files asynchronously on a bounded worker pool, so a
// slow storage backend never stalls request handlers.
type Uploader struct {
	wp          *workerpool.WorkerPool
	filestorage filestorage.FileStorage
}

func NewFileUploader(filestorage filestorage.FileStorage, maxWorkers int) *Uploader {
	return &Uploader{
		wp:          workerpool.New(maxWorkers),
		filestorage: filestorage,
	}
}

func (w *Uploader) Stop() {
	w.wp.Stop()
}

func (w *Uploader) Upload(file filestorage.FileInfo, response chan string) {
	w.wp.Submit(func() {
		w.upload(file, response)
	})
}

// UploadBytes stages raw content under its blake3 content hash.
func (w *Uploader) UploadBytes(content []byte, extension string, response chan string) {
	file := filestorage.NewFileInfo(hashutil.Blake3Hash(content), extension, content)
	w.Upload(file, response)
}

func (w *Uploader) upload(file filestorage.FileInfo, response chan string) {
	defer close(response)

	if w.filestorage == nil {
		return
	}

	url, err := w.filestorage.Upload(file)
	if err != nil {
		return
	}

	response <- url
}
