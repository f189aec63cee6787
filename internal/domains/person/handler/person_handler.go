package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"familytree-backend/internal/domains/person/model"
	"familytree-backend/internal/domains/person/service"
	"familytree-backend/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	photoField = "photo"
	xlsxType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Handler - HTTP handlers for /api/people
type Handler struct {
	service        service.ServiceInterface
	maxUploadBytes int64
}

// NewHandler - Constructor with DI
func NewHandler(service service.ServiceInterface, maxUploadBytes int64) *Handler {
	return &Handler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes mounts the person routes on rg (usually the /api group).
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	people := rg.Group("/people")
	{
		people.GET("", h.ListPeople)
		people.POST("", h.CreatePerson)
		people.DELETE("", h.BulkDeletePeople)
		people.GET("/export", h.ExportPeople)
		people.POST("/photos/sweep", h.SweepOrphanPhotos)

		people.GET("/:id", h.GetPerson)
		people.PUT("/:id", h.UpdatePerson)
		people.DELETE("/:id", h.DeletePerson)
		people.GET("/:id/photo", h.GetPersonPhoto)
	}
}

// handleError writes the mapped status and error body. Unknown errors are logged
// and answered with a generic 500.
func handleError(c *gin.Context, err error) {
	status := model.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("Request failed")
	}

	var vErr *model.ValidationError
	if errors.As(err, &vErr) {
		response.ErrorWithDetails(c, status, model.ToErrorCode(err), model.ToMessage(err), vErr.Fields)
		return
	}
	response.Error(c, status, model.ToErrorCode(err), model.ToMessage(err))
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handleError(c, fmt.Errorf("%w: %q", model.ErrInvalidID, c.Param("id")))
		return uuid.Nil, false
	}
	return id, true
}

// readUpload reads at most maxUploadBytes+1 bytes so an oversized file is
// detected without buffering all of it.
func (h *Handler) readUpload(fh *multipart.FileHeader) (*model.PhotoUpload, error) {
	if h.maxUploadBytes > 0 && fh.Size > h.maxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", model.ErrPhotoTooLarge, fh.Size, h.maxUploadBytes)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidPhoto, err)
	}
	defer f.Close()

	var r io.Reader = f
	if h.maxUploadBytes > 0 {
		r = io.LimitReader(f, h.maxUploadBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidPhoto, err)
	}
	if h.maxUploadBytes > 0 && int64(len(data)) > h.maxUploadBytes {
		return nil, fmt.Errorf("%w: limit %d bytes", model.ErrPhotoTooLarge, h.maxUploadBytes)
	}

	return &model.PhotoUpload{Filename: fh.Filename, Data: data}, nil
}

// bindPersonForm binds the text fields and the optional photo file.
// The returned upload is nil when no file part named "photo" was sent.
func (h *Handler) bindPersonForm(c *gin.Context) (model.PersonForm, *model.PhotoUpload, error) {
	var form model.PersonForm
	if err := c.ShouldBind(&form); err != nil {
		return form, nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}

	fh, err := c.FormFile(photoField)
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return form, nil, nil
	case err != nil:
		// not a multipart request; text-only bodies carry no file
		if errors.Is(err, http.ErrNotMultipart) {
			return form, nil, nil
		}
		return form, nil, fmt.Errorf("%w: %v", model.ErrInvalidPhoto, err)
	}

	upload, err := h.readUpload(fh)
	if err != nil {
		return form, nil, err
	}
	return form, upload, nil
}

// photoAction decides what an update does with the stored photo: a file part
// replaces it, a text part "null" or "undefined" removes it, anything else keeps it.
// An untouched browser file input arrives as an empty value and keeps the photo.
func photoAction(c *gin.Context, upload *model.PhotoUpload) model.PhotoAction {
	if upload != nil {
		return model.PhotoReplace
	}
	switch strings.TrimSpace(strings.ToLower(c.PostForm(photoField))) {
	case "null", "undefined":
		return model.PhotoRemove
	}
	return model.PhotoKeep
}

// ListPeople - GET /api/people?page=&limit=&query=
func (h *Handler) ListPeople(c *gin.Context) {
	filter, err := model.ParseListQuery(c.Query("page"), c.Query("limit"), c.Query("query"))
	if err != nil {
		handleError(c, err)
		return
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		handleError(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result)
}

// CreatePerson - POST /api/people (multipart/form-data)
func (h *Handler) CreatePerson(c *gin.Context) {
	// 1. Bind form and optional photo
	form, upload, err := h.bindPersonForm(c)
	if err != nil {
		handleError(c, err)
		return
	}

	// 2. Create record, then store photo
	created, err := h.service.Create(c.Request.Context(), &model.CreatePersonRequest{
		PersonForm: form,
		Photo:      upload,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	log.Info().
		Str("person_id", created.PersonID.String()).
		Bool("photo_saved", created.HasPhoto()).
		Msg("Person created")

	response.JSON(c, http.StatusCreated, model.CreatePersonResponse{
		Success:    true,
		PersonID:   created.PersonID,
		PhotoSaved: created.HasPhoto(),
	})
}

// GetPerson - GET /api/people/:id
func (h *Handler) GetPerson(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	person, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}

	response.JSON(c, http.StatusOK, person)
}

// UpdatePerson - PUT /api/people/:id (multipart/form-data)
func (h *Handler) UpdatePerson(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	form, upload, err := h.bindPersonForm(c)
	if err != nil {
		handleError(c, err)
		return
	}

	req := &model.UpdatePersonRequest{
		PersonForm:  form,
		PhotoAction: photoAction(c, upload),
		Photo:       upload,
	}
	if _, err := h.service.Update(c.Request.Context(), id, req); err != nil {
		handleError(c, err)
		return
	}

	log.Info().
		Str("person_id", id.String()).
		Stringer("photo_action", req.PhotoAction).
		Msg("Person updated")

	response.JSON(c, http.StatusOK, model.SuccessResponse{Success: true})
}

// DeletePerson - DELETE /api/people/:id
func (h *Handler) DeletePerson(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	deleted, err := h.service.Delete(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}

	response.JSON(c, http.StatusOK, deleted)
}

// BulkDeletePeople - DELETE /api/people?id=..&id=..
func (h *Handler) BulkDeletePeople(c *gin.Context) {
	result, err := h.service.BulkDelete(c.Request.Context(), c.QueryArray("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result)
}

// GetPersonPhoto - GET /api/people/:id/photo?variant=thumbnail
func (h *Handler) GetPersonPhoto(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	photo, err := h.service.GetPhoto(c.Request.Context(), id, c.Query("variant"))
	if err != nil {
		handleError(c, err)
		return
	}
	defer photo.Reader.Close()

	c.DataFromReader(http.StatusOK, photo.Size, photo.ContentType, photo.Reader, map[string]string{
		"Cache-Control": "private, max-age=60",
	})
}

// ExportPeople - GET /api/people/export?query=
func (h *Handler) ExportPeople(c *gin.Context) {
	conds, err := model.ParseFilterQuery(c.Query("query"))
	if err != nil {
		handleError(c, err)
		return
	}

	f, n, err := h.service.ExportExcel(c.Request.Context(), conds)
	if err != nil {
		handleError(c, err)
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close export workbook")
		}
	}()

	filename := fmt.Sprintf("people_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", xlsxType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)

	if err := f.Write(c.Writer); err != nil {
		log.Error().Err(err).Int("rows", n).Msg("Failed to stream export workbook")
		return
	}

	log.Info().Int("rows", n).Str("file", filename).Msg("People exported")
}

// SweepOrphanPhotos - POST /api/people/photos/sweep
func (h *Handler) SweepOrphanPhotos(c *gin.Context) {
	taskID, err := h.service.EnqueueOrphanSweep(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	response.JSON(c, http.StatusAccepted, gin.H{
		"success": true,
		"task_id": taskID,
	})
}
