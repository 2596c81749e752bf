package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/absfs/smbupload"
	"github.com/absfs/smbupload/internal/logger"
)

// Response bodies of GET /smb/upload.
const (
	UploadCompleteMessage = "SMB Upload Complete"
	UploadFailedPrefix    = "SMB upload failed: "
)

// OperationIDHeader carries the write's operation id on every upload response.
const OperationIDHeader = "X-Operation-Id"

// Uploader performs a single write. *smbupload.Writer implements it.
type Uploader interface {
	WriteFile(ctx context.Context, req smbupload.WriteRequest) (*smbupload.WriteResult, error)
}

// FolderFunc derives the target folder for a request made at now.
type FolderFunc func(now time.Time) string

// DatedFolder places writes under now formatted with layout, followed by
// base: with layout "2006/01/02" and base "123456789" a request on
// 1 June 2024 writes to "2024/06/01/123456789".
func DatedFolder(layout, base string) FolderFunc {
	return func(now time.Time) string {
		return strings.Join(smbupload.SplitSegments(now.Format(layout)+"/"+base), "/")
	}
}

// StaticFolder always writes to folder.
func StaticFolder(folder string) FolderFunc {
	return func(time.Time) string {
		return folder
	}
}

// UploadOptions configures an UploadHandler.
type UploadOptions struct {
	// Folder derives the folder. Nil uses the writer's configured folder.
	Folder FolderFunc
	// FileName overrides the writer's configured file name.
	FileName string
	// Content is written on every request.
	Content string
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// UploadHandler serves GET /smb/upload.
type UploadHandler struct {
	writer   Uploader
	folder   FolderFunc
	fileName string
	content  []byte
	now      func() time.Time
}

// NewUploadHandler creates the upload handler.
func NewUploadHandler(writer Uploader, opts UploadOptions) *UploadHandler {
	h := &UploadHandler{
		writer:   writer,
		folder:   opts.Folder,
		fileName: opts.FileName,
		content:  []byte(opts.Content),
		now:      opts.Now,
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// Upload writes the configured content and reports the outcome as plain
// text: 200 on success, 500 with the error on any failure.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	req := smbupload.WriteRequest{
		Content:  h.content,
		FileName: h.fileName,
	}
	if h.folder != nil {
		req.FolderPath = h.folder(h.now())
	}

	res, err := h.writer.WriteFile(r.Context(), req)
	if res != nil && res.OperationID != "" {
		w.Header().Set(OperationIDHeader, res.OperationID)
	}

	if err != nil {
		logger.WarnCtx(r.Context(), "Upload request failed",
			logger.KeyFolder, req.FolderPath,
			logger.KeyStep, string(smbupload.StepOf(err)),
			logger.KeyError, err,
		)
		writeText(w, http.StatusInternalServerError, UploadFailedPrefix+err.Error())
		return
	}

	writeText(w, http.StatusOK, UploadCompleteMessage)
}
