package model

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListQuery_Defaults(t *testing.T) {
	f, err := ParseListQuery("", "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 10, f.Limit)
	assert.Equal(t, 0, f.Offset())
	assert.Empty(t, f.Conditions)
}

func TestParseListQuery_PagingAndClamp(t *testing.T) {
	tests := []struct {
		page, limit       string
		wantPage, wantLim int
		wantOffset        int
	}{
		{"2", "10", 2, 10, 10},
		{"0", "5", 1, 5, 0},
		{"-3", "abc", 1, 10, 0},
		{"3", "1000", 3, 100, 200},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("page=%s,limit=%s", tt.page, tt.limit), func(t *testing.T) {
			f, err := ParseListQuery(tt.page, tt.limit, "")
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, f.Page)
			assert.Equal(t, tt.wantLim, f.Limit)
			assert.Equal(t, tt.wantOffset, f.Offset())
		})
	}
}

func TestParseFilterQuery(t *testing.T) {
	conds, err := ParseFilterQuery(`{"gender":"W","first_name":" ana ","mother_last_name":""}`)
	require.NoError(t, err)
	assert.Equal(t, []Condition{
		{Field: "first_name", Value: "ana", Kind: MatchContains},
		{Field: "gender", Value: "w", Kind: MatchEquals},
	}, conds)
}

func TestParseFilterQuery_Rejects(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`["a"]`,
		`{"photo":"x"}`,
		`{"first_name":3}`,
		`{"gender":"x"}`,
	} {
		_, err := ParseFilterQuery(raw)
		assert.ErrorIs(t, err, ErrInvalidFilter, raw)
	}
}

func TestListFilter_CacheKeyStable(t *testing.T) {
	a, err := ParseListQuery("1", "10", `{"first_name":"a","gender":"m"}`)
	require.NoError(t, err)
	b, err := ParseListQuery("1", "10", `{"gender":"m","first_name":"a"}`)
	require.NoError(t, err)
	c, err := ParseListQuery("2", "10", `{"gender":"m","first_name":"a"}`)
	require.NoError(t, err)

	assert.Equal(t, a.CacheKey(), b.CacheKey())
	assert.NotEqual(t, a.CacheKey(), c.CacheKey())
}

func TestPersonForm_Validate(t *testing.T) {
	f := PersonForm{FirstName: "  Ana ", Gender: " W ", Birthday: "1990-05-17"}
	f.Normalize()
	require.NoError(t, f.Validate())

	var p Person
	f.ApplyTo(&p)
	assert.Equal(t, "Ana", p.FirstName)
	require.NotNil(t, p.Gender)
	assert.Equal(t, "w", *p.Gender)
	require.NotNil(t, p.Birthday)
	assert.Equal(t, time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC), *p.Birthday)
	assert.Nil(t, p.FatherLastName)
	assert.Nil(t, p.MotherLastName)
}

func TestPersonForm_ValidateErrors(t *testing.T) {
	f := PersonForm{FirstName: "   ", Gender: "x", Birthday: "17/05/1990"}
	f.Normalize()

	err := NewValidationError(f.Validate())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "first_name")
	assert.Contains(t, ve.Fields, "gender")
	assert.Contains(t, ve.Fields, "birthday")
	assert.Equal(t, http.StatusBadRequest, ToHTTPStatus(err))
	assert.Equal(t, "VALIDATION_ERROR", ToErrorCode(err))
}

func TestPersonForm_BirthdayNullSentinel(t *testing.T) {
	f := PersonForm{FirstName: "Ana", Birthday: "null"}
	f.Normalize()
	require.NoError(t, f.Validate())

	var p Person
	f.ApplyTo(&p)
	assert.Nil(t, p.Birthday)
}

func TestPersonForm_UnsetSentinelsOnOptionalFields(t *testing.T) {
	f := PersonForm{
		FirstName:      "Ana",
		FatherLastName: "undefined",
		MotherLastName: " null ",
		Gender:         "undefined",
		Birthday:       "undefined",
	}
	f.Normalize()
	require.NoError(t, f.Validate())

	var p Person
	f.ApplyTo(&p)
	assert.Nil(t, p.FatherLastName)
	assert.Nil(t, p.MotherLastName)
	assert.Nil(t, p.Gender)
	assert.Nil(t, p.Birthday)
	assert.Equal(t, "Ana", p.FirstName)
}

func TestParseBirthday_Layouts(t *testing.T) {
	for _, s := range []string{"2001-02-03", "2001-02-03T04:05:06", "2001-02-03T04:05:06Z", "2001-02-03T04:05:06.789+02:00"} {
		b, err := ParseBirthday(s)
		require.NoError(t, err, s)
		require.NotNil(t, b, s)
		assert.Equal(t, 2001, b.Year())
	}
}

func TestPhotoNaming(t *testing.T) {
	id := uuid.MustParse("0b6f2c1e-3f7a-4c55-9e8e-2f1f7d1b9a10")
	assert.Equal(t, "0b6f2c1e-3f7a-4c55-9e8e-2f1f7d1b9a10.jpg", PhotoFileName(id, ".JPG"))
	assert.Equal(t, "image/png", PhotoContentType("x.png"))
	assert.Equal(t, "application/octet-stream", PhotoContentType("noext"))
}

func TestErrorMapping(t *testing.T) {
	wrapped := fmt.Errorf("get person: %w", ErrPersonNotFound)
	assert.Equal(t, http.StatusNotFound, ToHTTPStatus(wrapped))
	assert.Equal(t, "Person not found", ToMessage(wrapped))
	assert.Equal(t, "Photo not found", ToMessage(ErrPhotoNotFound))
	assert.Equal(t, http.StatusInternalServerError, ToHTTPStatus(ErrPhotoMissing))
	assert.Equal(t, http.StatusRequestEntityTooLarge, ToHTTPStatus(ErrPhotoTooLarge))

	internal := errors.New("pq: connection refused")
	assert.Equal(t, http.StatusInternalServerError, ToHTTPStatus(internal))
	assert.Equal(t, "INTERNAL_ERROR", ToErrorCode(internal))
	assert.Equal(t, "Internal server error", ToMessage(internal))
}

func TestPerson_FullName(t *testing.T) {
	father := "Ruiz"
	p := Person{FirstName: "Ana", FatherLastName: &father}
	assert.Equal(t, "Ana Ruiz", p.FullName())
	assert.False(t, p.HasPhoto())
}
