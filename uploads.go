package main

import (
	"bytes"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/ledgerline/invoicing_backend/config"
	"github.com/ledgerline/invoicing_backend/utils"
)

const maxUploadSizeBytes int64 = 20 * 1024 * 1024

// Receipts and invoice attachments: images plus PDF. Anything else is
// rejected regardless of the declared extension; the type is sniffed from
// the payload.
var allowedMimeTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
}

var thumbnailMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

type uploadResponse struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	FileName     string `json:"file_name"`
}

// uploadHandler accepts one multipart file, validates type and size, and
// stores it in the bucket under a collision-free name.
func uploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		ctx := c.Request.Context()

		businessId, ok := utils.GetBusinessIdFromContext(ctx)
		if !ok || businessId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "business id is required"})
			return
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if fileHeader.Size > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 20MB limit"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxUploadSizeBytes+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
			return
		}
		if int64(len(data)) > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 20MB limit"})
			return
		}

		mimeType := http.DetectContentType(data)
		// DetectContentType appends charset params for some types
		mimeType = strings.Split(mimeType, ";")[0]
		if !allowedMimeTypes[mimeType] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
			return
		}

		objectKey := businessId + "/" + utils.GenerateUniqueFilename(fileHeader.Filename)
		if err := utils.UploadBytesToGCS(ctx, objectKey, data, mimeType); err != nil {
			config.LogError(logger, "uploads.go", "uploadHandler", "upload to bucket", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
			return
		}

		resp := uploadResponse{
			URL:      utils.BuildObjectAccessURL(objectKey),
			FileName: fileHeader.Filename,
		}

		// Thumbnail is best effort; the upload succeeds without it.
		if thumbnailMimeTypes[mimeType] {
			if thumbKey, err := uploadThumbnail(c, objectKey, data); err != nil {
				config.LogError(logger, "uploads.go", "uploadHandler", "thumbnail", nil, err)
			} else {
				resp.ThumbnailURL = utils.BuildObjectAccessURL(thumbKey)
			}
		}

		c.JSON(http.StatusCreated, resp)
	}
}

func uploadThumbnail(c *gin.Context, objectKey string, data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	thumb := imaging.Fit(img, 200, 200, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return "", err
	}

	ext := path.Ext(objectKey)
	thumbKey := strings.TrimSuffix(objectKey, ext) + "_thumb.jpg"
	if err := utils.UploadBytesToGCS(c.Request.Context(), thumbKey, buf.Bytes(), "image/jpeg"); err != nil {
		return "", err
	}
	return thumbKey, nil
}
