package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"storagecore/pkg/storageapi"
)

const (
	defaultAPIEndpoint     = "https://api.dropboxapi.com"
	defaultContentEndpoint = "https://content.dropboxapi.com"
)

// Store implements storageapi.Store over the Dropbox HTTP API v2. Keys map
// to paths under the app folder root.
type Store struct {
	httpClient      *http.Client
	token           string
	apiEndpoint     string
	contentEndpoint string
}

// NewStore constructs a Dropbox-backed store. Endpoints default to the
// public Dropbox API and are overridable for tests.
func NewStore(token string, extra map[string]string) (*Store, error) {
	if token == "" {
		return nil, fmt.Errorf("dropbox access token required")
	}
	s := &Store{
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		token:           token,
		apiEndpoint:     defaultAPIEndpoint,
		contentEndpoint: defaultContentEndpoint,
	}
	if v := extra["api_endpoint"]; v != "" {
		s.apiEndpoint = v
	}
	if v := extra["content_endpoint"]; v != "" {
		s.contentEndpoint = v
	}
	return s, nil
}

func (s *Store) Driver() storageapi.Driver { return "dropbox" }

type fileMetadata struct {
	Name           string    `json:"name"`
	PathDisplay    string    `json:"path_display"`
	Size           int64     `json:"size"`
	ContentHash    string    `json:"content_hash"`
	ServerModified time.Time `json:"server_modified"`
}

func (m fileMetadata) info() storageapi.Info {
	return storageapi.Info{
		Key:          strings.TrimPrefix(m.PathDisplay, "/"),
		Size:         m.Size,
		ETag:         m.ContentHash,
		LastModified: m.ServerModified,
	}
}

func apiArg(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func (s *Store) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	return req, nil
}

func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts storageapi.PutOptions) (storageapi.Info, error) {
	// "add" mode refuses to overwrite, matching create-only semantics.
	req, err := s.newRequest(ctx, http.MethodPost, s.contentEndpoint+"/2/files/upload", r)
	if err != nil {
		return storageapi.Info{}, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Dropbox-API-Arg", apiArg(map[string]any{
		"path":       "/" + key,
		"mode":       "add",
		"autorename": false,
		"mute":       true,
	}))
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return storageapi.Info{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusConflict {
		return storageapi.Info{}, storageapi.ErrAlreadyExists
	}
	if resp.StatusCode != http.StatusOK {
		return storageapi.Info{}, apiError("upload", resp)
	}
	var meta fileMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return storageapi.Info{}, fmt.Errorf("decode upload response: %w", err)
	}
	info := meta.info()
	info.ContentType = opts.ContentType
	info.Metadata = opts.Metadata
	return info, nil
}

func (s *Store) Get(ctx context.Context, key string) (storageapi.Info, io.ReadCloser, error) {
	req, err := s.newRequest(ctx, http.MethodPost, s.contentEndpoint+"/2/files/download", nil)
	if err != nil {
		return storageapi.Info{}, nil, err
	}
	req.Header.Set("Dropbox-API-Arg", apiArg(map[string]string{"path": "/" + key}))
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return storageapi.Info{}, nil, err
	}
	if resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return storageapi.Info{}, nil, storageapi.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		return storageapi.Info{}, nil, apiError("download", resp)
	}
	var meta fileMetadata
	if raw := resp.Header.Get("Dropbox-API-Result"); raw != "" {
		_ = json.Unmarshal([]byte(raw), &meta)
	}
	info := meta.info()
	if info.Key == "" {
		info.Key = key
	}
	return info, resp.Body, nil
}

func (s *Store) Head(ctx context.Context, key string) (storageapi.Info, error) {
	body := strings.NewReader(apiArg(map[string]string{"path": "/" + key}))
	req, err := s.newRequest(ctx, http.MethodPost, s.apiEndpoint+"/2/files/get_metadata", body)
	if err != nil {
		return storageapi.Info{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return storageapi.Info{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusNotFound {
		return storageapi.Info{}, storageapi.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return storageapi.Info{}, apiError("get_metadata", resp)
	}
	var meta fileMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return storageapi.Info{}, fmt.Errorf("decode metadata: %w", err)
	}
	return meta.info(), nil
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	body := strings.NewReader(apiArg(map[string]string{"path": "/" + key}))
	req, err := s.newRequest(ctx, http.MethodPost, s.apiEndpoint+"/2/files/delete_v2", body)
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, apiError("delete", resp)
	}
	return true, nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]storageapi.Info, error) {
	arg := map[string]any{"path": "", "recursive": true}
	body := strings.NewReader(apiArg(arg))
	req, err := s.newRequest(ctx, http.MethodPost, s.apiEndpoint+"/2/files/list_folder", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError("list_folder", resp)
	}
	var out struct {
		Entries []struct {
			Tag string `json:".tag"`
			fileMetadata
		} `json:"entries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}
	var infos []storageapi.Info
	for _, e := range out.Entries {
		if e.Tag != "file" {
			continue
		}
		info := e.info()
		if prefix == "" || strings.HasPrefix(info.Key, prefix) {
			infos = append(infos, info)
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (s *Store) PresignURL(ctx context.Context, key string, opts storageapi.SignedURLOptions) (string, error) {
	if opts.Method != "" && strings.ToUpper(opts.Method) != "GET" {
		return "", storageapi.ErrUnsupported
	}
	body := strings.NewReader(apiArg(map[string]string{"path": "/" + key}))
	req, err := s.newRequest(ctx, http.MethodPost, s.apiEndpoint+"/2/files/get_temporary_link", body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusNotFound {
		return "", storageapi.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", apiError("get_temporary_link", resp)
	}
	var out struct {
		Link string `json:"link"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode link response: %w", err)
	}
	return out.Link, nil
}

func apiError(op string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("dropbox %s: status %d: %s", op, resp.StatusCode, bytes.TrimSpace(b))
}

var _ storageapi.Store = (*Store)(nil)
