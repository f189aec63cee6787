package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"familytree-backend/internal/domains/person/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Create(ctx context.Context, req *model.CreatePersonRequest) (*model.Person, error) {
	args := m.Called(ctx, req)
	p, _ := args.Get(0).(*model.Person)
	return p, args.Error(1)
}

func (m *mockService) GetByID(ctx context.Context, id uuid.UUID) (*model.Person, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*model.Person)
	return p, args.Error(1)
}

func (m *mockService) List(ctx context.Context, filter model.ListFilter) (*model.ListPeopleResponse, error) {
	args := m.Called(ctx, filter)
	res, _ := args.Get(0).(*model.ListPeopleResponse)
	return res, args.Error(1)
}

func (m *mockService) Update(ctx context.Context, id uuid.UUID, req *model.UpdatePersonRequest) (*model.Person, error) {
	args := m.Called(ctx, id, req)
	p, _ := args.Get(0).(*model.Person)
	return p, args.Error(1)
}

func (m *mockService) Delete(ctx context.Context, id uuid.UUID) (*model.Person, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*model.Person)
	return p, args.Error(1)
}

func (m *mockService) BulkDelete(ctx context.Context, rawIDs []string) (*model.BulkDeleteResponse, error) {
	args := m.Called(ctx, rawIDs)
	res, _ := args.Get(0).(*model.BulkDeleteResponse)
	return res, args.Error(1)
}

func (m *mockService) GetPhoto(ctx context.Context, id uuid.UUID, variant string) (*model.PhotoContent, error) {
	args := m.Called(ctx, id, variant)
	p, _ := args.Get(0).(*model.PhotoContent)
	return p, args.Error(1)
}

func (m *mockService) ExportExcel(ctx context.Context, conds []model.Condition) (*excelize.File, int, error) {
	args := m.Called(ctx, conds)
	f, _ := args.Get(0).(*excelize.File)
	return f, args.Int(1), args.Error(2)
}

func (m *mockService) EnqueueOrphanSweep(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func setupRouter(t *testing.T, maxUpload int64) (*gin.Engine, *mockService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := &mockService{}
	r := gin.New()
	NewHandler(svc, maxUpload).RegisterRoutes(r.Group("/api"))
	t.Cleanup(func() { svc.AssertExpectations(t) })
	return r, svc
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func multipartBody(t *testing.T, fields map[string]string, file []byte, filename string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		fw, err := mw.CreateFormFile("photo", filename)
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestListPeople(t *testing.T) {
	r, svc := setupRouter(t, 0)

	svc.On("List", mock.Anything, mock.MatchedBy(func(f model.ListFilter) bool {
		return f.Page == 2 && f.Limit == 100 && len(f.Conditions) == 1 && f.Conditions[0].Field == "first_name"
	})).Return(&model.ListPeopleResponse{Items: []model.Person{{FirstName: "Ana"}}, Total: 101}, nil)

	q := url.Values{"page": {"2"}, "limit": {"500"}, "query": {`{"first_name":"an"}`}}
	req := httptest.NewRequest(http.MethodGet, "/api/people?"+q.Encode(), nil)
	w := do(r, req)

	require.Equal(t, http.StatusOK, w.Code)
	var res model.ListPeopleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, int64(101), res.Total)
	assert.Len(t, res.Items, 1)
}

func TestListPeople_InvalidFilter(t *testing.T) {
	r, _ := setupRouter(t, 0)

	w := do(r, httptest.NewRequest(http.MethodGet, "/api/people?query="+url.QueryEscape(`{"photo":"x"}`), nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_FILTER", decodeError(t, w)["code"])
}

func TestGetPerson(t *testing.T) {
	r, svc := setupRouter(t, 0)
	id := uuid.New()
	missing := uuid.New()

	svc.On("GetByID", mock.Anything, id).Return(&model.Person{PersonID: id, FirstName: "Ana"}, nil)
	svc.On("GetByID", mock.Anything, missing).Return(nil, model.ErrPersonNotFound)

	w := do(r, httptest.NewRequest(http.MethodGet, "/api/people/"+id.String(), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"first_name":"Ana"`)

	w = do(r, httptest.NewRequest(http.MethodGet, "/api/people/"+missing.String(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "Person not found", body["message"])
	assert.Equal(t, false, body["success"])

	w = do(r, httptest.NewRequest(http.MethodGet, "/api/people/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", decodeError(t, w)["code"])
}

func TestCreatePerson_WithPhoto(t *testing.T) {
	r, svc := setupRouter(t, 1024)
	id := uuid.New()
	photo := strPtr(id.String() + ".jpg")

	svc.On("Create", mock.Anything, mock.MatchedBy(func(req *model.CreatePersonRequest) bool {
		return req.FirstName == "Ana" && req.Gender == "w" &&
			req.Photo != nil && req.Photo.Filename == "me.jpg" && string(req.Photo.Data) == "jpegdata"
	})).Return(&model.Person{PersonID: id, FirstName: "Ana", Photo: photo}, nil)

	body, ct := multipartBody(t, map[string]string{"first_name": "Ana", "gender": "w"}, []byte("jpegdata"), "me.jpg")
	req := httptest.NewRequest(http.MethodPost, "/api/people", body)
	req.Header.Set("Content-Type", ct)
	w := do(r, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var res model.CreatePersonResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.True(t, res.PhotoSaved)
	assert.Equal(t, id, res.PersonID)
}

func TestCreatePerson_PhotoTooLarge(t *testing.T) {
	r, _ := setupRouter(t, 4)

	body, ct := multipartBody(t, map[string]string{"first_name": "Ana"}, []byte("way too big"), "me.png")
	req := httptest.NewRequest(http.MethodPost, "/api/people", body)
	req.Header.Set("Content-Type", ct)
	w := do(r, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "PHOTO_TOO_LARGE", decodeError(t, w)["code"])
}

func TestCreatePerson_ValidationDetails(t *testing.T) {
	r, svc := setupRouter(t, 0)

	form := model.PersonForm{Gender: "x"}
	vErr := model.NewValidationError(form.Validate())
	svc.On("Create", mock.Anything, mock.Anything).Return(nil, vErr)

	body, ct := multipartBody(t, map[string]string{"gender": "x"}, nil, "")
	req := httptest.NewRequest(http.MethodPost, "/api/people", body)
	req.Header.Set("Content-Type", ct)
	w := do(r, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	res := decodeError(t, w)
	assert.Equal(t, "VALIDATION_ERROR", res["code"])
	details, ok := res["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, details, "first_name")
	assert.Contains(t, details, "gender")
}

func TestUpdatePerson_PhotoActions(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		file   []byte
		want   model.PhotoAction
	}{
		{name: "omitted keeps", fields: map[string]string{"first_name": "Ana"}, want: model.PhotoKeep},
		{name: "null removes", fields: map[string]string{"first_name": "Ana", "photo": "null"}, want: model.PhotoRemove},
		{name: "undefined removes", fields: map[string]string{"first_name": "Ana", "photo": "undefined"}, want: model.PhotoRemove},
		{name: "empty keeps", fields: map[string]string{"first_name": "Ana", "photo": ""}, want: model.PhotoKeep},
		{name: "existing name keeps", fields: map[string]string{"first_name": "Ana", "photo": "abc.png"}, want: model.PhotoKeep},
		{name: "file replaces", fields: map[string]string{"first_name": "Ana"}, file: []byte("img"), want: model.PhotoReplace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, svc := setupRouter(t, 0)
			id := uuid.New()

			svc.On("Update", mock.Anything, id, mock.MatchedBy(func(req *model.UpdatePersonRequest) bool {
				return req.PhotoAction == tt.want && (req.Photo != nil) == (tt.file != nil)
			})).Return(&model.Person{PersonID: id}, nil)

			body, ct := multipartBody(t, tt.fields, tt.file, "new.png")
			req := httptest.NewRequest(http.MethodPut, "/api/people/"+id.String(), body)
			req.Header.Set("Content-Type", ct)
			w := do(r, req)

			require.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"success":true}`, w.Body.String())
		})
	}
}

func TestUpdatePerson_UntouchedFileInputKeepsPhoto(t *testing.T) {
	r, svc := setupRouter(t, 0)
	id := uuid.New()

	svc.On("Update", mock.Anything, id, mock.MatchedBy(func(req *model.UpdatePersonRequest) bool {
		return req.PhotoAction == model.PhotoKeep && req.Photo == nil && req.FirstName == "Ana"
	})).Return(&model.Person{PersonID: id}, nil)

	// what a browser sends for an <input type="file"> left empty
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("first_name", "Ana"))
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="photo"; filename=""`)
	h.Set("Content-Type", "application/octet-stream")
	_, err := mw.CreatePart(h)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/api/people/"+id.String(), &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := do(r, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
}

func TestDeletePerson(t *testing.T) {
	r, svc := setupRouter(t, 0)
	id := uuid.New()
	svc.On("Delete", mock.Anything, id).Return(&model.Person{PersonID: id, FirstName: "Ana"}, nil)

	w := do(r, httptest.NewRequest(http.MethodDelete, "/api/people/"+id.String(), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id.String())
}

func TestBulkDeletePeople(t *testing.T) {
	r, svc := setupRouter(t, 0)
	a, b := uuid.NewString(), uuid.NewString()

	svc.On("BulkDelete", mock.Anything, []string{a, b}).
		Return(&model.BulkDeleteResponse{Success: true, Count: 2, Photos: 1}, nil)
	svc.On("BulkDelete", mock.Anything, mock.MatchedBy(func(ids []string) bool { return len(ids) == 0 })).
		Return(nil, model.ErrNoIDs)

	w := do(r, httptest.NewRequest(http.MethodDelete, "/api/people?id="+a+"&id="+b, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"count":2,"photos":1}`, w.Body.String())

	w = do(r, httptest.NewRequest(http.MethodDelete, "/api/people", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPersonPhoto(t *testing.T) {
	r, svc := setupRouter(t, 0)
	id := uuid.New()
	noPhoto := uuid.New()
	data := []byte("\x89PNG fake")

	svc.On("GetPhoto", mock.Anything, id, "thumbnail").Return(&model.PhotoContent{
		Name:        id.String() + ".png",
		Reader:      io.NopCloser(bytes.NewReader(data)),
		Size:        int64(len(data)),
		ContentType: "image/png",
	}, nil)
	svc.On("GetPhoto", mock.Anything, noPhoto, "").Return(nil, model.ErrPhotoNotFound)

	w := do(r, httptest.NewRequest(http.MethodGet, "/api/people/"+id.String()+"/photo?variant=thumbnail", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, strconv.Itoa(len(data)), w.Header().Get("Content-Length"))
	assert.Equal(t, data, w.Body.Bytes())

	w = do(r, httptest.NewRequest(http.MethodGet, "/api/people/"+noPhoto.String()+"/photo", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Photo not found", decodeError(t, w)["message"])
}

func TestExportPeople(t *testing.T) {
	r, svc := setupRouter(t, 0)

	f := excelize.NewFile()
	svc.On("ExportExcel", mock.Anything, mock.MatchedBy(func(conds []model.Condition) bool {
		return len(conds) == 1 && conds[0].Field == "gender"
	})).Return(f, 0, nil)

	w := do(r, httptest.NewRequest(http.MethodGet, "/api/people/export?query="+url.QueryEscape(`{"gender":"m"}`), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxType, w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Disposition"), "attachment;"))
	// xlsx is a zip archive
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))
}

func TestSweepOrphanPhotos(t *testing.T) {
	r, svc := setupRouter(t, 0)
	svc.On("EnqueueOrphanSweep", mock.Anything).Return("", model.ErrQueueNotEnabled).Once()
	svc.On("EnqueueOrphanSweep", mock.Anything).Return("task-9", nil).Once()

	w := do(r, httptest.NewRequest(http.MethodPost, "/api/people/photos/sweep", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(r, httptest.NewRequest(http.MethodPost, "/api/people/photos/sweep", nil))
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"success":true,"task_id":"task-9"}`, w.Body.String())
}

func strPtr(s string) *string { return &s }
