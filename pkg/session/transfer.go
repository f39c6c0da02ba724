package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/denysvitali/ipos-browser-go/internal/models"
	"github.com/denysvitali/ipos-browser-go/pkg/jsonrpc"
	"github.com/denysvitali/ipos-browser-go/version"
)

// baseURL is origin + prefix, the root of the browser routes
func (s *Session) baseURL() string {
	return s.origin + s.prefix
}

// escapeObject escapes each path segment of an object name, keeping the
// separators.
func escapeObject(object string) string {
	parts := strings.Split(object, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// urlToken returns a download token when logged in, "" otherwise
func (s *Session) urlToken(ctx context.Context) (string, error) {
	if !s.LoggedIn() {
		return "", nil
	}
	reply, err := s.CreateURLToken(ctx)
	if err != nil {
		return "", err
	}
	return reply.Token, nil
}

// DownloadURL returns a shareable download URL for an object. When logged
// in, the URL embeds a fresh URL token.
func (s *Session) DownloadURL(ctx context.Context, bucket, object string) (string, error) {
	token, err := s.urlToken(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/download/%s/%s?token=%s",
		s.baseURL(), url.PathEscape(bucket), escapeObject(object), url.QueryEscape(token)), nil
}

// ZipURL returns the URL accepting zip download requests
func (s *Session) ZipURL(ctx context.Context) (string, error) {
	token, err := s.urlToken(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/zip?token=%s", s.baseURL(), url.QueryEscape(token)), nil
}

// Download streams an object into w and returns the number of bytes written
func (s *Session) Download(ctx context.Context, bucket, object string, w io.Writer) (int64, error) {
	token := s.GetToken()
	target, err := s.DownloadURL(ctx, bucket, object)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build download request: %w", err)
	}
	return s.transfer(req, w, token)
}

// DownloadZip streams a zip archive of the selected objects into w
func (s *Session) DownloadZip(ctx context.Context, args models.DownloadZipArgs, w io.Writer) (int64, error) {
	token := s.GetToken()
	target, err := s.ZipURL(ctx)
	if err != nil {
		return 0, err
	}
	body, err := json.Marshal(args)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal zip request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build zip request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return s.transfer(req, w, token)
}

// Upload stores the content of r as bucket/object. size may be -1 when
// unknown.
func (s *Session) Upload(ctx context.Context, bucket, object string, r io.Reader, size int64) error {
	target := fmt.Sprintf("%s/upload/%s/%s", s.baseURL(), url.PathEscape(bucket), escapeObject(object))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, r)
	if err != nil {
		return fmt.Errorf("failed to build upload request: %w", err)
	}
	if size >= 0 {
		req.ContentLength = size
	}
	token := s.GetToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	_, err = s.transfer(req, io.Discard, token)
	return err
}

// transfer runs a plain HTTP request with the same failure policy as RPC
// calls: 401 forces a logout, other error statuses become ServerError.
// token is the session token the request was authorized with.
func (s *Session) transfer(req *http.Request, w io.Writer, token string) (int64, error) {
	req.Header.Set("x-amz-date", s.now().UTC().Format(jsonrpc.AmzDateFormat))
	req.Header.Set("User-Agent", version.UserAgent)

	ctx, span := s.tracer.Start(req.Context(), "transfer."+strings.ToLower(req.Method))
	defer span.End()
	req = req.WithContext(ctx)

	resp, err := s.http.Do(req)
	if err != nil {
		span.RecordError(err)
		return 0, s.transportError(&jsonrpc.NetworkError{Err: err}, token)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		err := s.transportError(&jsonrpc.StatusError{StatusCode: resp.StatusCode}, token)
		span.RecordError(err)
		return 0, err
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("transfer interrupted after %d bytes: %w", n, err)
	}
	return n, nil
}
