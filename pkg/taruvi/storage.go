package taruvi

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
)

// StorageModule exposes bucket-scoped object storage.
type StorageModule struct {
	client *Client
}

// From returns a handle on the named bucket. Buckets are created through the
// backend console; the SDK only operates on existing ones.
func (m *StorageModule) From(bucket string) *Bucket {
	return &Bucket{client: m.client, name: bucket}
}

// Bucket is an immutable handle on one storage bucket.
type Bucket struct {
	client *Client
	name   string
}

func (b *Bucket) objectsPath() string {
	return fmt.Sprintf("/api/apps/%s/storage/buckets/%s/objects/", b.client.config.AppSlug, b.name)
}

// ListObjectsOptions narrow a bucket listing.
type ListObjectsOptions struct {
	// Prefix keeps only objects whose name starts with it.
	Prefix string

	// Visibility keeps only "public" or "private" objects.
	Visibility string

	// Limit caps the number of returned objects.
	Limit int
}

// List returns the bucket's objects, optionally narrowed by opts.
func (b *Bucket) List(ctx context.Context, opts ListObjectsOptions) ([]StorageObject, error) {
	var params []Param
	if opts.Prefix != "" {
		params = append(params, Param{Key: "name__startswith", Value: opts.Prefix})
	}
	if opts.Visibility != "" {
		params = append(params, Param{Key: "visibility", Value: opts.Visibility})
	}
	if opts.Limit > 0 {
		params = append(params, Param{Key: "limit", Value: fmt.Sprintf("%d", opts.Limit)})
	}
	resp, err := b.client.pipeline.Do(ctx, request{
		method: "GET",
		path:   b.objectsPath(),
		query:  params,
		auth:   b.client.authHeader,
	})
	if err != nil {
		return nil, err
	}
	return decodeRecords[StorageObject](recordsFromAny(resp["data"]))
}

// UploadFile is one file in an upload batch.
type UploadFile struct {
	Name        string
	Content     []byte
	ContentType string
}

// Upload stores one or more files in a single multipart request and returns
// the created objects.
func (b *Bucket) Upload(ctx context.Context, files ...UploadFile) ([]StorageObject, error) {
	if len(files) == 0 {
		return nil, newError(ErrValidation, "upload requires at least one file", 0, nil)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for i, f := range files {
		if f.Name == "" {
			w.Close()
			return nil, newError(ErrValidation,
				fmt.Sprintf("upload file %d has no name", i), 0, nil)
		}
		part, err := w.CreateFormFile("files", f.Name)
		if err != nil {
			w.Close()
			return nil, newError(ErrValidation,
				fmt.Sprintf("failed to encode upload for %q: %v", f.Name, err), 0, nil)
		}
		if _, err := part.Write(f.Content); err != nil {
			w.Close()
			return nil, newError(ErrValidation,
				fmt.Sprintf("failed to encode upload for %q: %v", f.Name, err), 0, nil)
		}
	}
	if err := w.Close(); err != nil {
		return nil, newError(ErrValidation, fmt.Sprintf("failed to finalize upload body: %v", err), 0, nil)
	}

	resp, err := b.client.pipeline.Do(ctx, request{
		method:      "POST",
		path:        b.objectsPath(),
		bodyBytes:   buf.Bytes(),
		contentType: w.FormDataContentType(),
		auth:        b.client.authHeader,
	})
	if err != nil {
		return nil, err
	}
	return decodeRecords[StorageObject](recordsFromAny(resp["data"]))
}

// Download fetches an object's raw content.
func (b *Bucket) Download(ctx context.Context, name string) ([]byte, error) {
	var content []byte
	_, err := b.client.pipeline.Do(ctx, request{
		method: "GET",
		path:   b.objectsPath() + name + "/download/",
		auth:   b.client.authHeader,
		rawOut: &content,
	})
	if err != nil {
		return nil, err
	}
	return content, nil
}

// UpdateObject changes an object's metadata or visibility. Zero-valued fields
// are left untouched.
type UpdateObject struct {
	Metadata   map[string]any
	Visibility string
}

// Update applies changes to the named object and returns the updated
// descriptor.
func (b *Bucket) Update(ctx context.Context, name string, changes UpdateObject) (*StorageObject, error) {
	body := map[string]any{}
	if changes.Metadata != nil {
		body["metadata"] = changes.Metadata
	}
	if changes.Visibility != "" {
		body["visibility"] = changes.Visibility
	}
	if len(body) == 0 {
		return nil, newError(ErrValidation, "update requires metadata or visibility", 0, nil)
	}

	resp, err := b.client.pipeline.Do(ctx, request{
		method: "PATCH",
		path:   b.objectsPath() + name + "/",
		body:   body,
		auth:   b.client.authHeader,
	})
	if err != nil {
		return nil, err
	}
	var obj StorageObject
	if err := resp.Decode(&obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

// Delete removes the named objects in one request.
func (b *Bucket) Delete(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return newError(ErrValidation, "delete requires at least one object name", 0, nil)
	}
	_, err := b.client.pipeline.Do(ctx, request{
		method: "DELETE",
		path:   b.objectsPath(),
		body:   map[string]any{"names": names},
		auth:   b.client.authHeader,
	})
	return err
}
