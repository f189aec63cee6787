package model

import (
	"io"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// Limits for bulk operations and exports.
const (
	MaxBulkDeleteIDs = 500
	MaxExportRows    = 5000
)

// BirthdayLayouts are the accepted birthday input formats, tried in order.
var BirthdayLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// PersonForm holds the text fields of the create/update multipart form.
type PersonForm struct {
	FirstName      string `json:"first_name" form:"first_name"`
	FatherLastName string `json:"father_last_name" form:"father_last_name"`
	MotherLastName string `json:"mother_last_name" form:"mother_last_name"`
	Gender         string `json:"gender" form:"gender"`
	Birthday       string `json:"birthday" form:"birthday"`
}

// Normalize trims every field and lower-cases gender. Optional fields sent as
// "null" or "undefined" (an unset client-side value) become empty.
func (f *PersonForm) Normalize() {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.FatherLastName = unsetToEmpty(f.FatherLastName)
	f.MotherLastName = unsetToEmpty(f.MotherLastName)
	f.Gender = strings.ToLower(unsetToEmpty(f.Gender))
	f.Birthday = unsetToEmpty(f.Birthday)
}

func unsetToEmpty(s string) string {
	s = strings.TrimSpace(s)
	if s == "null" || s == "undefined" {
		return ""
	}
	return s
}

func (f PersonForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.FirstName,
			validation.Required.Error("first name is required"),
			validation.RuneLength(1, MaxNameLength),
		),
		validation.Field(&f.FatherLastName, validation.RuneLength(0, MaxNameLength)),
		validation.Field(&f.MotherLastName, validation.RuneLength(0, MaxNameLength)),
		validation.Field(&f.Gender,
			validation.In(GenderMale, GenderWoman, GenderOther).Error("gender must be one of m, w, o"),
		),
		validation.Field(&f.Birthday,
			validation.By(func(interface{}) error {
				_, err := ParseBirthday(f.Birthday)
				return err
			}),
		),
	)
}

// ParseBirthday parses s using BirthdayLayouts. Empty input yields nil.
func ParseBirthday(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range BirthdayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, validation.NewError("validation_birthday_format", "birthday must be a date (YYYY-MM-DD) or an RFC 3339 timestamp")
}

// ApplyTo overwrites every mutable field of p. Empty optional fields become null.
// The form must already be normalized and validated.
func (f PersonForm) ApplyTo(p *Person) {
	p.FirstName = f.FirstName
	p.FatherLastName = optional(f.FatherLastName)
	p.MotherLastName = optional(f.MotherLastName)
	p.Gender = optional(f.Gender)
	p.Birthday, _ = ParseBirthday(f.Birthday)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// PhotoAction says what an update does with the stored photo.
type PhotoAction int

const (
	// PhotoKeep leaves the photo reference untouched (field omitted).
	PhotoKeep PhotoAction = iota
	// PhotoReplace stores a newly uploaded file.
	PhotoReplace
	// PhotoRemove clears the photo (field sent as text "null" or "undefined").
	PhotoRemove
)

func (a PhotoAction) String() string {
	switch a {
	case PhotoReplace:
		return "replace"
	case PhotoRemove:
		return "remove"
	default:
		return "keep"
	}
}

// PhotoUpload is an uploaded image file.
type PhotoUpload struct {
	Filename string // original client file name
	Data     []byte
}

// CreatePersonRequest - POST /api/people
type CreatePersonRequest struct {
	PersonForm
	Photo *PhotoUpload
}

// UpdatePersonRequest - PUT /api/people/:id
type UpdatePersonRequest struct {
	PersonForm
	PhotoAction PhotoAction
	Photo       *PhotoUpload // set when PhotoAction is PhotoReplace
}

type CreatePersonResponse struct {
	Success    bool      `json:"success"`
	PersonID   uuid.UUID `json:"person_id"`
	PhotoSaved bool      `json:"photo_saved"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

// ListPeopleResponse - GET /api/people
type ListPeopleResponse struct {
	Items []Person `json:"items"`
	Total int64    `json:"total"`
}

// BulkDeleteResponse - DELETE /api/people?id=...
type BulkDeleteResponse struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
	// Photos is the number of photo discards attempted.
	Photos int `json:"photos"`
}

// PhotoContent is a readable stored photo. The caller closes Reader.
type PhotoContent struct {
	Name        string
	Reader      io.ReadCloser
	Size        int64
	ContentType string
}

// SweepResult summarizes one orphan photo sweep.
type SweepResult struct {
	Scanned int `json:"scanned"`
	Removed int `json:"removed"`
	Kept    int `json:"kept"`
	Failed  int `json:"failed"`
}

// Photo variants served by GET /api/people/:id/photo
const (
	PhotoVariantOriginal  = "original"
	PhotoVariantThumbnail = "thumbnail"
)
