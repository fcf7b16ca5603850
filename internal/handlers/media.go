package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mediavault/api/internal/middleware"
	"mediavault/api/internal/models"
	"mediavault/api/internal/service"
)

type mediaResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	FileName  string    `json:"fileName"`
	MimeType  string    `json:"mimeType"`
	SizeBytes int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}

func toMediaResponse(m models.Media) mediaResponse {
	return mediaResponse{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		FileName:  m.FileName,
		MimeType:  m.MimeType,
		SizeBytes: m.SizeBytes,
		CreatedAt: m.CreatedAt,
	}
}

func (h HandlerSet) UploadMedia(c *gin.Context) {
	identity, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_required"})
		return
	}
	defer file.Close()

	media, err := h.mediaService.Upload(c.Request.Context(), service.UploadInput{
		Identity: identity,
		File:     file,
		Header:   header,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidUpload) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_file"})
			return
		}
		h.log.Error().Err(err).Str("user_id", identity.UserID).Msg("upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"media": toMediaResponse(media)})
}

func (h HandlerSet) ListMyMedia(c *gin.Context) {
	identity, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	items, err := h.mediaService.ListOwned(c.Request.Context(), identity.UserID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", identity.UserID).Msg("list media failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	resp := make([]mediaResponse, 0, len(items))
	for _, m := range items {
		resp = append(resp, toMediaResponse(m))
	}
	c.JSON(http.StatusOK, gin.H{"media": resp})
}

func (h HandlerSet) GetMedia(c *gin.Context) {
	identity, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	media, err := h.mediaService.Get(c.Request.Context(), c.Param("id"), identity.UserID)
	if err != nil {
		h.respondMediaError(c, err, identity.UserID, "get media failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"media": toMediaResponse(media)})
}

func (h HandlerSet) DownloadMedia(c *gin.Context) {
	identity, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	media, stream, err := h.mediaService.Download(c.Request.Context(), c.Param("id"), identity.UserID)
	if err != nil {
		h.respondMediaError(c, err, identity.UserID, "download failed")
		return
	}
	defer stream.Close()

	extraHeaders := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", media.FileName),
	}
	c.DataFromReader(http.StatusOK, media.SizeBytes, media.MimeType, stream, extraHeaders)
}

func (h HandlerSet) DeleteMedia(c *gin.Context) {
	identity, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.mediaService.Delete(c.Request.Context(), c.Param("id"), identity.UserID); err != nil {
		h.respondMediaError(c, err, identity.UserID, "delete failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "media deleted"})
}

type permissionsResponse struct {
	MediaID        string   `json:"mediaId"`
	AllowedUserIDs []string `json:"allowedUserIds"`
}

func (h HandlerSet) GetMediaPermissions(c *gin.Context) {
	identity, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	mediaID := c.Param("id")
	allowed, err := h.mediaService.GetPermissions(c.Request.Context(), mediaID, identity.UserID)
	if err != nil {
		h.respondMediaError(c, err, identity.UserID, "get permissions failed")
		return
	}

	c.JSON(http.StatusOK, permissionsResponse{MediaID: mediaID, AllowedUserIDs: allowed})
}

type setPermissionsRequest struct {
	UserIDs []string `json:"userIds" binding:"required"`
}

func (h HandlerSet) SetMediaPermissions(c *gin.Context) {
	identity, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req setPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
		return
	}

	mediaID := c.Param("id")
	allowed, err := h.mediaService.SetPermissions(c.Request.Context(), mediaID, identity.UserID, req.UserIDs)
	if err != nil {
		if errors.Is(err, service.ErrInvalidUserIDs) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_user_ids"})
			return
		}
		h.respondMediaError(c, err, identity.UserID, "set permissions failed")
		return
	}

	c.JSON(http.StatusOK, permissionsResponse{MediaID: mediaID, AllowedUserIDs: allowed})
}

func (h HandlerSet) respondMediaError(c *gin.Context, err error, userID, msg string) {
	switch {
	case errors.Is(err, service.ErrMediaNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "media_not_found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, service.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage_unavailable"})
	default:
		h.log.Error().Err(err).Str("user_id", userID).Msg(msg)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
