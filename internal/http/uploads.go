package http

import (
	"github.com/gin-gonic/gin"

	"github.com/sboapp/admin/internal/storage"
)

type UploadsController struct {
	uploader *storage.Uploader
}

func NewUploadsController(uploader *storage.Uploader) *UploadsController {
	return &UploadsController{uploader: uploader}
}

// Upload stores a cover image or book PDF and returns its URL for the
// coverImage or pdfUrl field.
// POST /api/admin/uploads (multipart: kind=cover|pdf, file)
func (uc *UploadsController) Upload(c *gin.Context) {
	kind := storage.Kind(c.PostForm("kind"))
	if !kind.Valid() {
		respondBadRequest(c, "kind must be cover or pdf")
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		respondBadRequest(c, "file is required")
		return
	}
	if header.Size > uc.uploader.MaxBytes() {
		respondError(c, storage.ErrTooLarge, "upload")
		return
	}
	f, err := header.Open()
	if err != nil {
		respondInternalError(c, err, "open upload")
		return
	}
	defer f.Close()

	asset, err := uc.uploader.Upload(c.Request.Context(), kind, f)
	if err != nil {
		respondError(c, err, "upload")
		return
	}
	respondCreated(c, asset)
}
