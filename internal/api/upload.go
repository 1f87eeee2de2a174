package api

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"

	apierrors "github.com/tmarquez/geminiflow/internal/errors"
	"github.com/tmarquez/geminiflow/internal/models"
)

// MaxImageSize bounds a single uploaded image.
const MaxImageSize = 20 * 1024 * 1024 // 20MB

// ImageInput is one image attachment supplied by the caller.
type ImageInput struct {
	Data []byte
	Name string
}

// UploadedImage is the opaque reference the upload endpoint hands back for
// one image, paired with its filename for the request payload.
type UploadedImage struct {
	Ref  string
	Name string
}

// UploadImages uploads all images and returns their references in input
// order. Uploads are independent round-trips and run concurrently; results
// are collected order-preserving. Any failure aborts the call with an
// UploadError, which is fatal and never auth-retried.
func UploadImages(client tls_client.HttpClient, images []ImageInput) ([]UploadedImage, error) {
	if len(images) == 0 {
		return nil, nil
	}

	results := make([]UploadedImage, len(images))
	errs := make([]error, len(images))

	var wg sync.WaitGroup
	for i, img := range images {
		wg.Add(1)
		go func(i int, img ImageInput) {
			defer wg.Done()
			results[i], errs[i] = uploadOne(client, img)
		}(i, img)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// uploadOne runs the resumable upload choreography for a single image:
// OPTIONS preflight, start POST returning the upload URL via a response
// header, OPTIONS preflight on that URL, then a finalize POST with the raw
// bytes whose response body is the opaque reference.
func uploadOne(client tls_client.HttpClient, img ImageInput) (UploadedImage, error) {
	if len(img.Data) > MaxImageSize {
		return UploadedImage{}, apierrors.NewUploadError(
			fmt.Sprintf("image exceeds maximum size of %d bytes", MaxImageSize), img.Name)
	}

	if err := preflight(client, models.EndpointUpload, nil); err != nil {
		return UploadedImage{}, apierrors.NewUploadError(err.Error(), img.Name)
	}

	stepHeaders := map[string]string{
		"Size":                  strconv.Itoa(len(img.Data)),
		"X-Goog-Upload-Command": "start",
	}

	var startBody io.Reader
	if img.Name != "" {
		startBody = strings.NewReader("File name: " + img.Name)
	}
	resp, err := doUploadRequest(client, fhttp.MethodPost, models.EndpointUpload, stepHeaders, startBody)
	if err != nil {
		return UploadedImage{}, apierrors.NewUploadError(fmt.Sprintf("start: %v", err), img.Name)
	}
	uploadURL := resp.Header.Get("X-Goog-Upload-Url")
	_ = resp.Body.Close()
	if uploadURL == "" {
		return UploadedImage{}, apierrors.NewUploadError("start: missing X-Goog-Upload-Url header", img.Name)
	}

	if err := preflight(client, uploadURL, stepHeaders); err != nil {
		return UploadedImage{}, apierrors.NewUploadError(err.Error(), img.Name)
	}

	stepHeaders["X-Goog-Upload-Command"] = "upload, finalize"
	stepHeaders["X-Goog-Upload-Offset"] = "0"
	resp, err = doUploadRequest(client, fhttp.MethodPost, uploadURL, stepHeaders, bytes.NewReader(img.Data))
	if err != nil {
		return UploadedImage{}, apierrors.NewUploadError(fmt.Sprintf("finalize: %v", err), img.Name)
	}
	defer func() { _ = resp.Body.Close() }()

	ref, err := io.ReadAll(resp.Body)
	if err != nil {
		return UploadedImage{}, apierrors.NewUploadError(fmt.Sprintf("finalize: read response: %v", err), img.Name)
	}

	return UploadedImage{Ref: string(ref), Name: img.Name}, nil
}

// preflight issues the OPTIONS request the browser client sends before each
// POST step.
func preflight(client tls_client.HttpClient, url string, extra map[string]string) error {
	resp, err := doUploadRequest(client, fhttp.MethodOptions, url, extra, nil)
	if err != nil {
		return fmt.Errorf("preflight: %w", err)
	}
	_ = resp.Body.Close()
	return nil
}

// doUploadRequest issues one step of the choreography; any non-2xx status is
// an error for that image.
func doUploadRequest(client tls_client.HttpClient, method, url string, extra map[string]string, body io.Reader) (*fhttp.Response, error) {
	req, err := fhttp.NewRequest(method, url, body)
	if err != nil {
		return nil, err
	}
	for key, value := range models.UploadHeaders() {
		req.Header.Set(key, value)
	}
	for key, value := range extra {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		snippet := make([]byte, 300)
		n, _ := resp.Body.Read(snippet)
		_ = resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(snippet[:n]))
	}
	return resp, nil
}
