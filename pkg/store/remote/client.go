// Package remote is the HTTP client of the hosted record store.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/harrisonrobin/crmsync/pkg/store"
)

const DefaultBaseURL = "https://api.apper.io"

// Config is supplied once at start; nothing is read from the environment
// here.
type Config struct {
	ProjectID string
	PublicKey string
	BaseURL   string
	// HTTPClient is the base transport. The public key is attached on top of
	// it. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// Client implements store.RecordStore over HTTP.
type Client struct {
	http    *http.Client
	base    string
	project string
}

var _ store.RecordStore = (*Client)(nil)

// NewClient validates cfg and returns a client that authenticates every
// request with the public key as a bearer credential.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("remote store: project id is required")
	}
	if cfg.PublicKey == "" {
		return nil, errors.New("remote store: public key is required")
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("remote store: invalid base url %q: %w", base, err)
	}
	if cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, cfg.HTTPClient)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.PublicKey, TokenType: "Bearer"})
	return &Client{
		http:    oauth2.NewClient(ctx, ts),
		base:    strings.TrimRight(base, "/"),
		project: cfg.ProjectID,
	}, nil
}

func (c *Client) recordsURL(table string, suffix string) string {
	return fmt.Sprintf("%s/v1/projects/%s/tables/%s/records%s",
		c.base, url.PathEscape(c.project), url.PathEscape(table), suffix)
}

func (c *Client) List(ctx context.Context, table string, q store.Query) (*store.ListResponse, error) {
	var resp store.ListResponse
	if err := c.do(ctx, http.MethodPost, c.recordsURL(table, ":fetch"), q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetByID(ctx context.Context, table, id string, fields []string) (*store.GetResponse, error) {
	body := struct {
		Fields []string `json:"fields"`
	}{fields}
	var resp store.GetResponse
	if err := c.do(ctx, http.MethodPost, c.recordsURL(table, "/"+url.PathEscape(id)+":get"), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type recordsBody struct {
	Records []store.Record `json:"records"`
}

func (c *Client) BulkCreate(ctx context.Context, table string, records []store.Record) (*store.BulkResponse, error) {
	var resp store.BulkResponse
	if err := c.do(ctx, http.MethodPost, c.recordsURL(table, ""), recordsBody{records}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) BulkUpdate(ctx context.Context, table string, records []store.Record) (*store.BulkResponse, error) {
	var resp store.BulkResponse
	if err := c.do(ctx, http.MethodPut, c.recordsURL(table, ""), recordsBody{records}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) BulkDelete(ctx context.Context, table string, ids []string) (*store.DeleteResponse, error) {
	body := struct {
		RecordIds []string `json:"RecordIds"`
	}{ids}
	var resp store.DeleteResponse
	if err := c.do(ctx, http.MethodDelete, c.recordsURL(table, ""), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer googleapi.CloseBody(res)

	if err := googleapi.CheckResponse(res); err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
