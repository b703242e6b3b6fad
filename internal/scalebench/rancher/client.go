// Package rancher is a minimal client for the Rancher v3 management API.
package rancher

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/armadaproject/scalebench/internal/common/benchmarkerrors"
)

const apiPrefix = "/v3"

type Options struct {
	// Base URL of the Rancher server, e.g. https://rancher.example.com.
	URL string
	// API token, sent as a bearer token.
	Token              string
	InsecureSkipVerify bool
	Timeout            time.Duration
	// Overrides the client built from the options above.
	HTTPClient *http.Client
}

type Client struct {
	base  *url.URL
	token string
	hc    *http.Client
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, errors.WithStack(&benchmarkerrors.ErrInvalidArgument{
			Name:    "URL",
			Value:   opts.URL,
			Message: "the Rancher URL must not be empty",
		})
	}
	base, err := url.Parse(strings.TrimRight(opts.URL, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, "parsing Rancher URL %q", opts.URL)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{InsecureSkipVerify: opts.InsecureSkipVerify}, //nolint:gosec
			},
		}
	}
	return &Client{base: base, token: opts.Token, hc: hc}, nil
}

func (c *Client) ListClusters(ctx context.Context) ([]Cluster, error) {
	var clusters clusterCollection
	if err := c.do(ctx, http.MethodGet, "clusters", nil, &clusters); err != nil {
		return nil, err
	}
	return clusters.Data, nil
}

func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var projects projectCollection
	if err := c.do(ctx, http.MethodGet, "projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects.Data, nil
}

func (c *Client) CreateCluster(ctx context.Context, cluster Cluster) (Cluster, error) {
	var created Cluster
	if err := c.do(ctx, http.MethodPost, "clusters", cluster, &created); err != nil {
		return Cluster{}, err
	}
	return created, nil
}

func (c *Client) GetCluster(ctx context.Context, id string) (Cluster, error) {
	var cluster Cluster
	if err := c.do(ctx, http.MethodGet, path.Join("clusters", id), nil, &cluster); err != nil {
		return Cluster{}, err
	}
	return cluster, nil
}

func (c *Client) UpdateCluster(ctx context.Context, cluster Cluster) (Cluster, error) {
	if cluster.ID == "" {
		return Cluster{}, errors.WithStack(&benchmarkerrors.ErrInvalidArgument{
			Name:    "ID",
			Value:   cluster.ID,
			Message: "cannot update a cluster without an id",
		})
	}
	var updated Cluster
	if err := c.do(ctx, http.MethodPut, path.Join("clusters", cluster.ID), cluster, &updated); err != nil {
		return Cluster{}, err
	}
	return updated, nil
}

func (c *Client) DeleteCluster(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, path.Join("clusters", id), nil, nil)
}

func (c *Client) endpoint(resource string) string {
	u := *c.base
	u.Path = path.Join(c.base.Path, apiPrefix, resource)
	return u.String()
}

// do sends body as JSON and decodes the response into out. A nil out discards the response body.
func (c *Client) do(ctx context.Context, method, resource string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.WithStack(err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(resource), reader)
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, req.URL.Path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.WithStack(newAPIError(method, req.URL.Path, resp))
	}
	if out == nil {
		_, err := io.Copy(io.Discard, resp.Body)
		return errors.WithStack(err)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decoding response to %s %s", method, req.URL.Path)
	}
	return nil
}

// APIError is returned for any non-2xx response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	// Rancher's error code, e.g. NotFound, if the body carried one.
	Code    string
	Message string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func newAPIError(method, path string, resp *http.Response) *APIError {
	apiErr := &APIError{Method: method, Path: path, StatusCode: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return apiErr
	}
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}

// IsNotFound reports whether err is an APIError for a 404 response.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
