package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"familytree-backend/internal/domains/person/model"
	"familytree-backend/internal/domains/person/repository"
	"familytree-backend/internal/infrastructure/queue"
	"familytree-backend/internal/infrastructure/storage"
	"familytree-backend/internal/shared/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// Options carries the optional collaborators and tuning of the person service.
type Options struct {
	ThumbnailSize int
	SweepGrace    time.Duration
	// Enqueuer is nil when the background queue is disabled.
	Enqueuer queue.Enqueuer
}

type personService struct {
	repo      repository.RepositoryInterface
	store     storage.PhotoStore
	images    *storage.ImageProcessor
	janitor   PhotoJanitor
	enqueuer  queue.Enqueuer
	thumbSize int
	grace     time.Duration
}

func NewPersonService(
	repo repository.RepositoryInterface,
	store storage.PhotoStore,
	images *storage.ImageProcessor,
	janitor PhotoJanitor,
	opts Options,
) ServiceInterface {
	if opts.ThumbnailSize <= 0 {
		opts.ThumbnailSize = 300
	}
	return &personService{
		repo:      repo,
		store:     store,
		images:    images,
		janitor:   janitor,
		enqueuer:  opts.Enqueuer,
		thumbSize: opts.ThumbnailSize,
		grace:     opts.SweepGrace,
	}
}

// preparedPhoto is an upload that passed validation.
type preparedPhoto struct {
	data []byte
	ext  string
}

func (s *personService) preparePhoto(upload *model.PhotoUpload) (*preparedPhoto, error) {
	if upload == nil {
		return nil, nil
	}

	format, err := s.images.Validate(upload.Data)
	switch {
	case errors.Is(err, storage.ErrImageTooLarge):
		return nil, fmt.Errorf("%w: %v", model.ErrPhotoTooLarge, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidPhoto, err)
	}

	ext := utils.FileExtension(upload.Filename)
	if ext == "" {
		ext = format
	}
	if !storage.IsAllowedExtension(ext) {
		return nil, fmt.Errorf("%w: extension %q is not an image type", model.ErrInvalidPhoto, ext)
	}

	return &preparedPhoto{data: upload.Data, ext: ext}, nil
}

func (s *personService) savePhoto(ctx context.Context, name string, photo *preparedPhoto) error {
	if _, err := s.store.Save(ctx, name, bytes.NewReader(photo.data), model.PhotoContentType(name)); err != nil {
		return fmt.Errorf("%w: %v", model.ErrPhotoWrite, err)
	}
	return nil
}

func validateForm(form *model.PersonForm) error {
	form.Normalize()
	return model.NewValidationError(form.Validate())
}

// Create inserts the record first to obtain the id, then stores the photo and
// links it. A failed photo write or link removes the new record again.
func (s *personService) Create(ctx context.Context, req *model.CreatePersonRequest) (*model.Person, error) {
	if err := validateForm(&req.PersonForm); err != nil {
		return nil, err
	}
	photo, err := s.preparePhoto(req.Photo)
	if err != nil {
		return nil, err
	}

	var p model.Person
	req.PersonForm.ApplyTo(&p)

	created, err := s.repo.Create(ctx, &p)
	if err != nil {
		return nil, err
	}
	if photo == nil {
		return created, nil
	}

	name := model.PhotoFileName(created.PersonID, photo.ext)
	if err := s.savePhoto(ctx, name, photo); err != nil {
		s.rollbackCreate(ctx, created.PersonID, "")
		return nil, err
	}

	if err := s.repo.SetPhoto(ctx, created.PersonID, &name); err != nil {
		s.rollbackCreate(ctx, created.PersonID, name)
		return nil, fmt.Errorf("link photo: %w", err)
	}

	created.Photo = &name
	return created, nil
}

// rollbackCreate undoes a half-finished create. Failures are logged only.
func (s *personService) rollbackCreate(ctx context.Context, id uuid.UUID, photo string) {
	ctx = context.WithoutCancel(ctx)

	if photo != "" {
		if err := s.store.Remove(ctx, photo); err != nil {
			log.Error().Err(err).Str("person_id", id.String()).Str("photo", photo).Msg("Failed to remove photo of rolled back person")
		}
	}
	if _, err := s.repo.Delete(ctx, id); err != nil {
		log.Error().Err(err).Str("person_id", id.String()).Msg("Failed to roll back person after photo failure")
		return
	}
	log.Warn().Str("person_id", id.String()).Msg("Person creation rolled back")
}

func (s *personService) GetByID(ctx context.Context, id uuid.UUID) (*model.Person, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *personService) List(ctx context.Context, filter model.ListFilter) (*model.ListPeopleResponse, error) {
	people, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &model.ListPeopleResponse{Items: people, Total: total}, nil
}

// Update writes a replacement photo before the record so the record never points
// at a missing file. The previous file is discarded after the record commits.
func (s *personService) Update(ctx context.Context, id uuid.UUID, req *model.UpdatePersonRequest) (*model.Person, error) {
	if err := validateForm(&req.PersonForm); err != nil {
		return nil, err
	}

	var photo *preparedPhoto
	if req.PhotoAction == model.PhotoReplace {
		if req.Photo == nil {
			return nil, fmt.Errorf("%w: no file uploaded", model.ErrInvalidPhoto)
		}
		var err error
		if photo, err = s.preparePhoto(req.Photo); err != nil {
			return nil, err
		}
	}

	current, err := s.repo.GetByIDDirect(ctx, id)
	if err != nil {
		return nil, err
	}
	oldName := current.PhotoName()

	next := *current
	req.PersonForm.ApplyTo(&next)

	newName := ""
	switch req.PhotoAction {
	case model.PhotoRemove:
		next.Photo = nil
	case model.PhotoReplace:
		newName = model.PhotoFileName(id, photo.ext)
		if err := s.savePhoto(ctx, newName, photo); err != nil {
			return nil, err
		}
		next.Photo = &newName
	}

	var updated *model.Person
	if req.PhotoAction == model.PhotoKeep {
		// photo column is left as stored, never rewritten from the snapshot
		updated, err = s.repo.UpdateDetails(ctx, &next)
	} else {
		updated, err = s.repo.Update(ctx, &next)
	}
	if err != nil {
		if newName != "" && newName != oldName {
			if rmErr := s.store.Remove(context.WithoutCancel(ctx), newName); rmErr != nil {
				log.Error().Err(rmErr).Str("person_id", id.String()).Str("photo", newName).Msg("Failed to remove photo of failed update")
			}
		}
		return nil, err
	}

	if oldName != "" && oldName != updated.PhotoName() {
		s.janitor.Discard(ctx, oldName)
	}

	return updated, nil
}

func (s *personService) Delete(ctx context.Context, id uuid.UUID) (*model.Person, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	if deleted.HasPhoto() {
		s.janitor.Discard(ctx, deleted.PhotoName())
	}
	return deleted, nil
}

func (s *personService) BulkDelete(ctx context.Context, rawIDs []string) (*model.BulkDeleteResponse, error) {
	if len(rawIDs) == 0 {
		return nil, model.ErrNoIDs
	}
	if len(rawIDs) > model.MaxBulkDeleteIDs {
		return nil, fmt.Errorf("%w: at most %d per request", model.ErrTooManyIDs, model.MaxBulkDeleteIDs)
	}

	parsed, bad, ok := utils.ParseUUIDs(rawIDs)
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidID, bad)
	}

	seen := make(map[uuid.UUID]struct{}, len(parsed))
	ids := make([]uuid.UUID, 0, len(parsed))
	for _, id := range parsed {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	deleted, err := s.repo.DeleteMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	photos := make([]string, 0, len(deleted))
	for _, p := range deleted {
		if p.HasPhoto() {
			photos = append(photos, p.PhotoName())
		}
	}
	attempted := s.janitor.Discard(ctx, photos...)

	log.Info().
		Int("requested", len(ids)).
		Int("deleted", len(deleted)).
		Int("photos", attempted).
		Msg("Bulk delete finished")

	return &model.BulkDeleteResponse{
		Success: true,
		Count:   len(deleted),
		Photos:  attempted,
	}, nil
}

func (s *personService) GetPhoto(ctx context.Context, id uuid.UUID, variant string) (*model.PhotoContent, error) {
	variant = strings.ToLower(strings.TrimSpace(variant))
	if variant != "" && variant != model.PhotoVariantOriginal && variant != model.PhotoVariantThumbnail {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidVariant, variant)
	}

	// the file name must match the row, not a cached copy of it
	p, err := s.repo.GetByIDDirect(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.HasPhoto() {
		return nil, model.ErrPhotoNotFound
	}
	name := p.PhotoName()

	rc, info, err := s.store.Open(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrPhotoNotExist) {
			log.Error().Str("person_id", id.String()).Str("photo", name).Msg("Photo referenced by record is missing from the store")
			return nil, fmt.Errorf("%w: %s", model.ErrPhotoMissing, name)
		}
		return nil, fmt.Errorf("open photo: %w", err)
	}

	if variant != model.PhotoVariantThumbnail {
		return &model.PhotoContent{
			Name:        name,
			Reader:      rc,
			Size:        info.Size,
			ContentType: model.PhotoContentType(name),
		}, nil
	}

	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read photo: %w", err)
	}
	thumb, ext, err := s.images.Thumbnail(data, utils.FileExtension(name), s.thumbSize)
	if err != nil {
		return nil, fmt.Errorf("thumbnail %s: %w", name, err)
	}

	return &model.PhotoContent{
		Name:        name,
		Reader:      io.NopCloser(bytes.NewReader(thumb)),
		Size:        int64(len(thumb)),
		ContentType: "image/" + ext,
	}, nil
}

func (s *personService) ExportExcel(ctx context.Context, conds []model.Condition) (*excelize.File, int, error) {
	people, _, err := s.repo.List(ctx, model.ListFilter{
		Page:       1,
		Limit:      model.MaxExportRows,
		Conditions: conds,
	})
	if err != nil {
		return nil, 0, err
	}

	f, err := buildPeopleExcelFile(people)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build excel file: %w", err)
	}
	return f, len(people), nil
}

func (s *personService) EnqueueOrphanSweep(ctx context.Context) (string, error) {
	if s.enqueuer == nil {
		return "", model.ErrQueueNotEnabled
	}

	task, err := queue.NewSweepOrphanPhotosTask(s.grace)
	if err != nil {
		return "", err
	}
	info, err := s.enqueuer.Enqueue(task, queue.SweepTaskOptions()...)
	if err != nil {
		return "", fmt.Errorf("enqueue orphan sweep: %w", err)
	}

	log.Info().Str("task_id", info.ID).Msg("Orphan photo sweep enqueued")
	return info.ID, nil
}
