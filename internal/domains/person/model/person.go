package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Genders
const (
	GenderMale  = "m"
	GenderWoman = "w"
	GenderOther = "o"
)

// Field limits, in characters.
const (
	MaxNameLength = 255
)

// Person is one member of the family tree.
type Person struct {
	PersonID       uuid.UUID  `json:"person_id"`
	FirstName      string     `json:"first_name"`
	FatherLastName *string    `json:"father_last_name"`
	MotherLastName *string    `json:"mother_last_name"`
	Gender         *string    `json:"gender"`
	Birthday       *time.Time `json:"birthday"`
	Photo          *string    `json:"photo"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// HasPhoto reports whether the record references a stored photo.
func (p *Person) HasPhoto() bool {
	return p.Photo != nil && *p.Photo != ""
}

// PhotoName returns the referenced photo file name, or "".
func (p *Person) PhotoName() string {
	if !p.HasPhoto() {
		return ""
	}
	return *p.Photo
}

// FullName joins the non-empty name parts.
func (p *Person) FullName() string {
	parts := []string{p.FirstName}
	if p.FatherLastName != nil && *p.FatherLastName != "" {
		parts = append(parts, *p.FatherLastName)
	}
	if p.MotherLastName != nil && *p.MotherLastName != "" {
		parts = append(parts, *p.MotherLastName)
	}
	return strings.Join(parts, " ")
}

// PhotoFileName is the Photo Store name for a person's photo: "<person_id>.<ext>".
func PhotoFileName(id uuid.UUID, ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" {
		return id.String()
	}
	return id.String() + "." + ext
}

// PhotoContentType derives "image/<ext>" from a stored photo name.
func PhotoContentType(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 || i == len(name)-1 {
		return "application/octet-stream"
	}
	return "image/" + strings.ToLower(name[i+1:])
}
