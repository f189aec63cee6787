package service

import (
	"context"

	"familytree-backend/internal/domains/person/model"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// ServiceInterface is the Person Service: it keeps records and their photo files consistent.
type ServiceInterface interface {
	// Create inserts the record, then stores the optional photo as "<person_id>.<ext>".
	Create(ctx context.Context, req *model.CreatePersonRequest) (*model.Person, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Person, error)
	List(ctx context.Context, filter model.ListFilter) (*model.ListPeopleResponse, error)
	// Update overwrites the record and applies req.PhotoAction. A replaced or
	// removed photo file is discarded only after the record write succeeds.
	Update(ctx context.Context, id uuid.UUID, req *model.UpdatePersonRequest) (*model.Person, error)
	// Delete removes the record and then discards its photo (best effort).
	Delete(ctx context.Context, id uuid.UUID) (*model.Person, error)
	// BulkDelete validates raw ids, removes the records and discards their photos (best effort).
	BulkDelete(ctx context.Context, rawIDs []string) (*model.BulkDeleteResponse, error)
	// GetPhoto opens the stored photo. The caller closes the returned reader.
	GetPhoto(ctx context.Context, id uuid.UUID, variant string) (*model.PhotoContent, error)
	// ExportExcel builds a workbook of every person matching conds, capped at model.MaxExportRows.
	ExportExcel(ctx context.Context, conds []model.Condition) (*excelize.File, int, error)
	// EnqueueOrphanSweep schedules an immediate orphan photo sweep and returns the task id.
	EnqueueOrphanSweep(ctx context.Context) (string, error)
}
