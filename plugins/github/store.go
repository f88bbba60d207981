package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"storagecore/pkg/storageapi"
)

const defaultAPIEndpoint = "https://api.github.com"

// Store implements storageapi.Store over the GitHub repository contents API.
// Keys map to file paths inside the configured repository and branch.
type Store struct {
	httpClient *http.Client
	token      string
	endpoint   string
	owner      string
	repo       string
	branch     string
}

// NewStore constructs a GitHub-backed store. Required extra settings:
// owner, repo; branch defaults to main. The endpoint is overridable for
// tests and GitHub Enterprise.
func NewStore(token string, extra map[string]string) (*Store, error) {
	if token == "" {
		return nil, fmt.Errorf("github token required")
	}
	owner, repo := extra["owner"], extra["repo"]
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("github owner and repo settings required")
	}
	s := &Store{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		token:      token,
		endpoint:   defaultAPIEndpoint,
		owner:      owner,
		repo:       repo,
		branch:     "main",
	}
	if v := extra["endpoint"]; v != "" {
		s.endpoint = v
	}
	if v := extra["branch"]; v != "" {
		s.branch = v
	}
	return s, nil
}

func (s *Store) Driver() storageapi.Driver { return "github" }

func (s *Store) contentsURL(key string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s",
		s.endpoint, s.owner, s.repo, escapePath(key), url.QueryEscape(s.branch))
}

func escapePath(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func (s *Store) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	return req, nil
}

type contentEntry struct {
	Type        string `json:"type"`
	Path        string `json:"path"`
	SHA         string `json:"sha"`
	Size        int64  `json:"size"`
	Content     string `json:"content,omitempty"`
	Encoding    string `json:"encoding,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

func (e contentEntry) info() storageapi.Info {
	return storageapi.Info{
		Key:  e.Path,
		Size: e.Size,
		ETag: e.SHA,
		URL:  e.DownloadURL,
	}
}

func (s *Store) fetch(ctx context.Context, key string) (contentEntry, error) {
	req, err := s.newRequest(ctx, http.MethodGet, s.contentsURL(key), nil)
	if err != nil {
		return contentEntry{}, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return contentEntry{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusNotFound {
		return contentEntry{}, storageapi.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return contentEntry{}, apiError("contents", resp)
	}
	var entry contentEntry
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		return contentEntry{}, fmt.Errorf("decode contents: %w", err)
	}
	return entry, nil
}

func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts storageapi.PutOptions) (storageapi.Info, error) {
	if _, err := s.fetch(ctx, key); err == nil {
		return storageapi.Info{}, storageapi.ErrAlreadyExists
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return storageapi.Info{}, err
	}
	payload := map[string]string{
		"message": fmt.Sprintf("storagecore: add %s", key),
		"content": base64.StdEncoding.EncodeToString(data),
		"branch":  s.branch,
	}
	body, _ := json.Marshal(payload)
	req, err := s.newRequest(ctx, http.MethodPut, s.contentsURL(key), bytes.NewReader(body))
	if err != nil {
		return storageapi.Info{}, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return storageapi.Info{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusUnprocessableEntity {
		return storageapi.Info{}, storageapi.ErrAlreadyExists
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return storageapi.Info{}, apiError("create", resp)
	}
	var out struct {
		Content contentEntry `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return storageapi.Info{}, fmt.Errorf("decode create response: %w", err)
	}
	info := out.Content.info()
	info.Size = int64(len(data))
	info.ContentType = opts.ContentType
	info.Metadata = opts.Metadata
	info.LastModified = time.Now().UTC()
	return info, nil
}

func (s *Store) Get(ctx context.Context, key string) (storageapi.Info, io.ReadCloser, error) {
	entry, err := s.fetch(ctx, key)
	if err != nil {
		return storageapi.Info{}, nil, err
	}
	if entry.Encoding != "base64" {
		return storageapi.Info{}, nil, fmt.Errorf("unexpected content encoding %q", entry.Encoding)
	}
	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(entry.Content, "\n", ""))
	if err != nil {
		return storageapi.Info{}, nil, fmt.Errorf("decode content: %w", err)
	}
	return entry.info(), io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Store) Head(ctx context.Context, key string) (storageapi.Info, error) {
	entry, err := s.fetch(ctx, key)
	if err != nil {
		return storageapi.Info{}, err
	}
	return entry.info(), nil
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	entry, err := s.fetch(ctx, key)
	if err == storageapi.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	payload := map[string]string{
		"message": fmt.Sprintf("storagecore: delete %s", key),
		"sha":     entry.SHA,
		"branch":  s.branch,
	}
	body, _ := json.Marshal(payload)
	req, err := s.newRequest(ctx, http.MethodDelete, s.contentsURL(key), bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return false, apiError("delete", resp)
	}
	return true, nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]storageapi.Info, error) {
	// The contents API lists one directory per call; walk from the prefix's
	// directory downward.
	root := ""
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		root = prefix[:i]
	}
	var infos []storageapi.Info
	if err := s.listDir(ctx, root, prefix, &infos); err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (s *Store) listDir(ctx context.Context, dir, prefix string, infos *[]storageapi.Info) error {
	req, err := s.newRequest(ctx, http.MethodGet, s.contentsURL(dir), nil)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return apiError("list", resp)
	}
	var entries []contentEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return fmt.Errorf("decode list: %w", err)
	}
	for _, e := range entries {
		switch e.Type {
		case "file":
			if prefix == "" || strings.HasPrefix(e.Path, prefix) {
				*infos = append(*infos, e.info())
			}
		case "dir":
			if prefix == "" || strings.HasPrefix(e.Path, prefix) || strings.HasPrefix(prefix, e.Path) {
				if err := s.listDir(ctx, e.Path, prefix, infos); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// PresignURL returns the raw download URL GitHub exposes for the blob.
func (s *Store) PresignURL(ctx context.Context, key string, opts storageapi.SignedURLOptions) (string, error) {
	if opts.Method != "" && strings.ToUpper(opts.Method) != "GET" {
		return "", storageapi.ErrUnsupported
	}
	entry, err := s.fetch(ctx, key)
	if err != nil {
		return "", err
	}
	if entry.DownloadURL == "" {
		return "", storageapi.ErrUnsupported
	}
	return entry.DownloadURL, nil
}

func apiError(op string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("github %s: status %d: %s", op, resp.StatusCode, bytes.TrimSpace(b))
}

var _ storageapi.Store = (*Store)(nil)
