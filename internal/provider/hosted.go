package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/hazyhaar/ggsync/internal/model"
)

// HostedProvider talks to a bearer-token HTTP API at {BaseURL}/sync and
// {BaseURL}/sync/meta.
type HostedProvider struct {
	BaseURL string
	APIKey  string
	client  *http.Client
}

// NewHosted creates a HostedProvider against baseURL, authenticated with
// apiKey as a bearer token.
func NewHosted(baseURL, apiKey string) *HostedProvider {
	return &HostedProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

type hostedPullResponse struct {
	Db           string `json:"db"`
	DbShm        string `json:"db_shm"`
	DbWal        string `json:"db_wal"`
	LastModified string `json:"last_modified"`
	DeviceName   string `json:"device_name"`
}

type hostedMetaResponse struct {
	LastModified string `json:"last_modified"`
	DeviceName   string `json:"device_name"`
}

func (p *HostedProvider) Push(ctx context.Context, snapshot model.ConfigSnapshot) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := writeMultipartPart(mw, "db", snapshot.Db); err != nil {
		return ioErr("build multipart db part: %w", err)
	}
	if err := writeMultipartPart(mw, "db_shm", snapshot.DbShm); err != nil {
		return ioErr("build multipart db_shm part: %w", err)
	}
	if err := writeMultipartPart(mw, "db_wal", snapshot.DbWal); err != nil {
		return ioErr("build multipart db_wal part: %w", err)
	}
	if err := mw.WriteField("device_name", snapshot.Meta.DeviceName); err != nil {
		return ioErr("build multipart device_name field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return ioErr("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, p.BaseURL+"/sync", &body)
	if err != nil {
		return ioErr("build push request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	p.authorize(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return networkErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return otherErr("HTTP %d", resp.StatusCode)
	}
	return nil
}

func (p *HostedProvider) Pull(ctx context.Context) (model.ConfigSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/sync", nil)
	if err != nil {
		return model.ConfigSnapshot{}, ioErr("build pull request: %w", err)
	}
	p.authorize(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return model.ConfigSnapshot{}, networkErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return model.ConfigSnapshot{}, notFoundErr()
	}
	if resp.StatusCode/100 != 2 {
		return model.ConfigSnapshot{}, otherErr("HTTP %d", resp.StatusCode)
	}

	var payload hostedPullResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return model.ConfigSnapshot{}, ioErr("decode pull response: %w", err)
	}

	db, err := base64.StdEncoding.DecodeString(payload.Db)
	if err != nil {
		return model.ConfigSnapshot{}, ioErr("decode db payload: %w", err)
	}
	shm, err := decodeOptionalBase64(payload.DbShm)
	if err != nil {
		return model.ConfigSnapshot{}, ioErr("decode db_shm payload: %w", err)
	}
	wal, err := decodeOptionalBase64(payload.DbWal)
	if err != nil {
		return model.ConfigSnapshot{}, ioErr("decode db_wal payload: %w", err)
	}

	lastModified, err := time.Parse(time.RFC3339, payload.LastModified)
	if err != nil {
		return model.ConfigSnapshot{}, ioErr("parse last_modified: %w", err)
	}

	return model.ConfigSnapshot{
		Db:    db,
		DbShm: shm,
		DbWal: wal,
		Meta: model.SyncMeta{
			LastModified: lastModified,
			DeviceName:   payload.DeviceName,
		},
	}, nil
}

func (p *HostedProvider) RemoteMeta(ctx context.Context) (model.SyncMeta, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/sync/meta", nil)
	if err != nil {
		return model.SyncMeta{}, ioErr("build meta request: %w", err)
	}
	p.authorize(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return model.SyncMeta{}, networkErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return model.SyncMeta{}, notFoundErr()
	}
	if resp.StatusCode/100 != 2 {
		return model.SyncMeta{}, otherErr("HTTP %d", resp.StatusCode)
	}

	var payload hostedMetaResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return model.SyncMeta{}, ioErr("decode meta response: %w", err)
	}

	lastModified, err := time.Parse(time.RFC3339, payload.LastModified)
	if err != nil {
		return model.SyncMeta{}, ioErr("parse last_modified: %w", err)
	}

	return model.SyncMeta{LastModified: lastModified, DeviceName: payload.DeviceName}, nil
}

func (p *HostedProvider) authorize(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.APIKey))
}

func writeMultipartPart(mw *multipart.Writer, field string, data []byte) error {
	w, err := mw.CreateFormField(field)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, bytes.NewReader(data))
	return err
}

func decodeOptionalBase64(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(s)
}
