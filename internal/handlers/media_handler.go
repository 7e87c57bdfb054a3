package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/catalogix/backend/internal/config"
	"github.com/catalogix/backend/internal/services"
)

type MediaHandler struct {
	cfg            *config.Config
	ingestService  *services.IngestService
	compareService *services.CompareService
}

func NewMediaHandler(cfg *config.Config, ingestService *services.IngestService, compareService *services.CompareService) *MediaHandler {
	return &MediaHandler{
		cfg:            cfg,
		ingestService:  ingestService,
		compareService: compareService,
	}
}

// readUpload reads an uploaded file without buffering more than one byte past
// the size cap, so oversize payloads are rejected cheaply. The extra byte is
// what lets the service's size check see the overflow.
func (h *MediaHandler) readUpload(file io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(file, h.cfg.MaxUploadBytes+1))
}

// UploadImage ingests an image and returns the asset with its renditions.
// POST /v1/images
// Multipart form: tenant (required), file (required)
func (h *MediaHandler) UploadImage(c *gin.Context) {
	tenant := c.PostForm("tenant")
	if tenant == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant is required"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	defer file.Close()

	data, err := h.readUpload(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}

	asset, err := h.ingestService.Ingest(c.Request.Context(), tenant, header.Filename, data)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPayloadTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrNotAnImage):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ingest image"})
		}
		return
	}

	c.JSON(http.StatusCreated, asset)
}

// GetAsset returns an asset by id with its renditions.
// GET /v1/images/:id
func (h *MediaHandler) GetAsset(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid asset id"})
		return
	}

	asset, err := h.ingestService.GetAsset(id)
	if err != nil {
		if errors.Is(err, services.ErrAssetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "asset not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load asset"})
		return
	}

	c.JSON(http.StatusOK, asset)
}

// CompareImage measures an upload against every preset without persisting.
// POST /v1/compare
// Multipart form: file (required)
func (h *MediaHandler) CompareImage(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	defer file.Close()

	data, err := h.readUpload(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}

	results, recommended, err := h.compareService.Compare(data)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPayloadTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrNotAnImage):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compare image"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results":     results,
		"recommended": recommended,
	})
}
