package taruvi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketList(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/apps/testapp/storage/buckets/avatars/objects/", r.URL.Path)
		assert.Equal(t, "img/", r.URL.Query().Get("name__startswith"))
		assert.Equal(t, "public", r.URL.Query().Get("visibility"))
		w.Write([]byte(`{"data": [{"id": "o1", "name": "img/ada.png", "size": 1024}]}`))
	}), nil)

	objects, err := client.Storage().From("avatars").List(context.Background(), ListObjectsOptions{
		Prefix:     "img/",
		Visibility: "public",
	})
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "img/ada.png", objects[0].Name)
	assert.EqualValues(t, 1024, objects[0].Size)
}

func TestBucketUpload(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Len(t, r.MultipartForm.File["files"], 2)

		w.Write([]byte(`{"data": [{"id": "o1", "name": "a.txt"}, {"id": "o2", "name": "b.txt"}]}`))
	}), nil)

	objects, err := client.Storage().From("docs").Upload(context.Background(),
		UploadFile{Name: "a.txt", Content: []byte("alpha")},
		UploadFile{Name: "b.txt", Content: []byte("beta")},
	)
	require.NoError(t, err)
	assert.Len(t, objects, 2)
}

func TestBucketUploadValidation(t *testing.T) {
	client := newTestClient(t, jsonHandler(200, `{}`), nil)

	_, err := client.Storage().From("docs").Upload(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = client.Storage().From("docs").Upload(context.Background(),
		UploadFile{Content: []byte("no name")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestBucketDownload(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/apps/testapp/storage/buckets/docs/objects/a.txt/download/", r.URL.Path)
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("raw file bytes"))
	}), nil)

	content, err := client.Storage().From("docs").Download(context.Background(), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("raw file bytes"), content)
}

func TestBucketUpdate(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "PATCH", r.Method)
		w.Write([]byte(`{"id": "o1", "name": "a.txt", "visibility": "public"}`))
	}), nil)

	obj, err := client.Storage().From("docs").Update(context.Background(), "a.txt",
		UpdateObject{Visibility: "public"})
	require.NoError(t, err)
	assert.Equal(t, "public", obj.Visibility)

	_, err = client.Storage().From("docs").Update(context.Background(), "a.txt", UpdateObject{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestBucketDelete(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "DELETE", r.Method)
		w.WriteHeader(http.StatusNoContent)
	}), nil)

	err := client.Storage().From("docs").Delete(context.Background(), "a.txt", "b.txt")
	require.NoError(t, err)

	err = client.Storage().From("docs").Delete(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
}
