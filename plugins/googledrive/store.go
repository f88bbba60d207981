package googledrive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"storagecore/pkg/storageapi"
)

const (
	defaultAPIEndpoint    = "https://www.googleapis.com/drive/v3"
	defaultUploadEndpoint = "https://www.googleapis.com/upload/drive/v3"
)

// Store implements storageapi.Store over the Google Drive files API. Keys
// map to file names inside the configured folder; Drive folders are not
// mirrored, the full key is the file name.
type Store struct {
	httpClient     *http.Client
	token          string
	apiEndpoint    string
	uploadEndpoint string
	folderID       string
}

// NewStore constructs a Drive-backed store. Optional extra settings:
// folder_id scopes all objects to one folder; api_endpoint and
// upload_endpoint are overridable for tests.
func NewStore(token string, extra map[string]string) (*Store, error) {
	if token == "" {
		return nil, fmt.Errorf("google drive access token required")
	}
	s := &Store{
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		token:          token,
		apiEndpoint:    defaultAPIEndpoint,
		uploadEndpoint: defaultUploadEndpoint,
		folderID:       extra["folder_id"],
	}
	if v := extra["api_endpoint"]; v != "" {
		s.apiEndpoint = v
	}
	if v := extra["upload_endpoint"]; v != "" {
		s.uploadEndpoint = v
	}
	return s, nil
}

func (s *Store) Driver() storageapi.Driver { return "googledrive" }

type driveFile struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	MimeType       string `json:"mimeType"`
	Size           string `json:"size"`
	MD5Checksum    string `json:"md5Checksum"`
	ModifiedTime   string `json:"modifiedTime"`
	WebContentLink string `json:"webContentLink"`
}

const fileFields = "id,name,mimeType,size,md5Checksum,modifiedTime,webContentLink"

func (f driveFile) info() storageapi.Info {
	size, _ := strconv.ParseInt(f.Size, 10, 64)
	modified, _ := time.Parse(time.RFC3339, f.ModifiedTime)
	return storageapi.Info{
		Key:          f.Name,
		Size:         size,
		ContentType:  f.MimeType,
		ETag:         f.MD5Checksum,
		LastModified: modified,
		URL:          f.WebContentLink,
	}
}

func (s *Store) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	return req, nil
}

// lookup resolves a key to its Drive file, if any. Duplicate names are
// possible in Drive; the first match wins.
func (s *Store) lookup(ctx context.Context, key string) (driveFile, error) {
	query := fmt.Sprintf("name = '%s' and trashed = false", strings.ReplaceAll(key, "'", "\\'"))
	if s.folderID != "" {
		query += fmt.Sprintf(" and '%s' in parents", s.folderID)
	}
	u := fmt.Sprintf("%s/files?q=%s&fields=%s", s.apiEndpoint,
		url.QueryEscape(query), url.QueryEscape("files("+fileFields+")"))
	req, err := s.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return driveFile{}, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return driveFile{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return driveFile{}, apiError("files.list", resp)
	}
	var out struct {
		Files []driveFile `json:"files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return driveFile{}, fmt.Errorf("decode file list: %w", err)
	}
	if len(out.Files) == 0 {
		return driveFile{}, storageapi.ErrNotFound
	}
	return out.Files[0], nil
}

func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts storageapi.PutOptions) (storageapi.Info, error) {
	if _, err := s.lookup(ctx, key); err == nil {
		return storageapi.Info{}, storageapi.ErrAlreadyExists
	} else if err != storageapi.ErrNotFound {
		return storageapi.Info{}, err
	}

	meta := map[string]any{"name": key}
	if s.folderID != "" {
		meta["parents"] = []string{s.folderID}
	}
	if opts.ContentType != "" {
		meta["mimeType"] = opts.ContentType
	}
	if len(opts.Metadata) > 0 {
		meta["appProperties"] = opts.Metadata
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	part, err := mw.CreatePart(metaHeader)
	if err != nil {
		return storageapi.Info{}, err
	}
	if err := json.NewEncoder(part).Encode(meta); err != nil {
		return storageapi.Info{}, err
	}
	dataHeader := textproto.MIMEHeader{}
	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	dataHeader.Set("Content-Type", contentType)
	part, err = mw.CreatePart(dataHeader)
	if err != nil {
		return storageapi.Info{}, err
	}
	size, err := io.Copy(part, r)
	if err != nil {
		return storageapi.Info{}, err
	}
	if err := mw.Close(); err != nil {
		return storageapi.Info{}, err
	}

	u := fmt.Sprintf("%s/files?uploadType=multipart&fields=%s", s.uploadEndpoint, url.QueryEscape(fileFields))
	req, err := s.newRequest(ctx, http.MethodPost, u, &body)
	if err != nil {
		return storageapi.Info{}, err
	}
	req.Header.Set("Content-Type", "multipart/related; boundary="+mw.Boundary())
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return storageapi.Info{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return storageapi.Info{}, apiError("files.create", resp)
	}
	var file driveFile
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return storageapi.Info{}, fmt.Errorf("decode create response: %w", err)
	}
	info := file.info()
	if info.Size == 0 {
		info.Size = size
	}
	info.Metadata = opts.Metadata
	return info, nil
}

func (s *Store) Get(ctx context.Context, key string) (storageapi.Info, io.ReadCloser, error) {
	file, err := s.lookup(ctx, key)
	if err != nil {
		return storageapi.Info{}, nil, err
	}
	u := fmt.Sprintf("%s/files/%s?alt=media", s.apiEndpoint, url.PathEscape(file.ID))
	req, err := s.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return storageapi.Info{}, nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return storageapi.Info{}, nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return storageapi.Info{}, nil, storageapi.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		return storageapi.Info{}, nil, apiError("files.get", resp)
	}
	return file.info(), resp.Body, nil
}

func (s *Store) Head(ctx context.Context, key string) (storageapi.Info, error) {
	file, err := s.lookup(ctx, key)
	if err != nil {
		return storageapi.Info{}, err
	}
	return file.info(), nil
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	file, err := s.lookup(ctx, key)
	if err == storageapi.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	u := fmt.Sprintf("%s/files/%s", s.apiEndpoint, url.PathEscape(file.ID))
	req, err := s.newRequest(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return false, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return false, apiError("files.delete", resp)
	}
	return true, nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]storageapi.Info, error) {
	query := "trashed = false"
	if s.folderID != "" {
		query += fmt.Sprintf(" and '%s' in parents", s.folderID)
	}
	var infos []storageapi.Info
	pageToken := ""
	for {
		u := fmt.Sprintf("%s/files?q=%s&fields=%s", s.apiEndpoint,
			url.QueryEscape(query), url.QueryEscape("nextPageToken,files("+fileFields+")"))
		if pageToken != "" {
			u += "&pageToken=" + url.QueryEscape(pageToken)
		}
		req, err := s.newRequest(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			defer func() { _ = resp.Body.Close() }()
			return nil, apiError("files.list", resp)
		}
		var out struct {
			NextPageToken string      `json:"nextPageToken"`
			Files         []driveFile `json:"files"`
		}
		err = json.NewDecoder(resp.Body).Decode(&out)
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decode file list: %w", err)
		}
		for _, f := range out.Files {
			info := f.info()
			if prefix == "" || strings.HasPrefix(info.Key, prefix) {
				infos = append(infos, info)
			}
		}
		if out.NextPageToken == "" {
			break
		}
		pageToken = out.NextPageToken
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// PresignURL returns the file's web content link. Drive links are gated by
// the file's sharing settings rather than an expiry.
func (s *Store) PresignURL(ctx context.Context, key string, opts storageapi.SignedURLOptions) (string, error) {
	if opts.Method != "" && strings.ToUpper(opts.Method) != "GET" {
		return "", storageapi.ErrUnsupported
	}
	file, err := s.lookup(ctx, key)
	if err != nil {
		return "", err
	}
	if file.WebContentLink == "" {
		return "", storageapi.ErrUnsupported
	}
	return file.WebContentLink, nil
}

func apiError(op string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("googledrive %s: status %d: %s", op, resp.StatusCode, bytes.TrimSpace(b))
}

var _ storageapi.Store = (*Store)(nil)
