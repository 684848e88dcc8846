package dpm_http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/deploykit/dpm-cli/internal/domain"
)

// Client talks to the Deploy Manager REST API. Transient failures (5xx,
// 429) are retried with exponential backoff; anything else is permanent
// and surfaces as *domain.APIError. The polling core never retries on its
// own, so this is the only retry layer.
type Client struct {
	baseURL string
	token   string
	hc      *http.Client
}

func New(baseURL, token string, timeout time.Duration) *Client {
	tr := &http.Transport{
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		baseURL: trimSlash(baseURL),
		token:   token,
		hc:      &http.Client{Transport: tr, Timeout: timeout},
	}
}

type projectDTO struct {
	Name         string       `json:"name"`
	Org          string       `json:"org"`
	Owner        string       `json:"owner"`
	Description  string       `json:"description"`
	Status       string       `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	LastRevision *revisionDTO `json:"last_revision"`
	Stages       []stageDTO   `json:"stages"`
	Builds       []buildDTO   `json:"builds"`
	Routes       []routeDTO   `json:"routes"`
}

type revisionDTO struct {
	Number    int                 `json:"number"`
	Status    string              `json:"status"`
	Author    string              `json:"author"`
	CreatedAt time.Time           `json:"created_at"`
	Spec      *domain.ProjectSpec `json:"spec"`
}

type stageDTO struct {
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type buildDTO struct {
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	Stage       string    `json:"stage"`
	WorkflowRef string    `json:"workflow_ref"`
	UpdatedAt   time.Time `json:"updated_at"`
	ImageDigest string    `json:"image_digest"`
	CommitSHA   string    `json:"commit_sha"`
}

type routeDTO struct {
	Name          string   `json:"name"`
	Status        string   `json:"status"`
	URL           string   `json:"url"`
	CustomDomains []string `json:"custom_domains"`
	Stage         string   `json:"stage"`
}

type confirmationDTO struct {
	Detail string `json:"detail"`
}

type userDTO struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	CurrentOrg struct {
		Name string `json:"name"`
	} `json:"current_org"`
}

// ProjectFilters narrow list queries server side.
type ProjectFilters struct {
	Search string
	Org    string
	User   string
	Status string
}

func (f ProjectFilters) values() url.Values {
	q := url.Values{}
	setNonEmpty(q, "search", f.Search)
	setNonEmpty(q, "org", f.Org)
	setNonEmpty(q, "user", f.User)
	setNonEmpty(q, "status", f.Status)
	return q
}

func refValues(ref domain.ProjectRef) url.Values {
	q := url.Values{}
	setNonEmpty(q, "org", ref.Org)
	setNonEmpty(q, "user", ref.User)
	return q
}

func setNonEmpty(q url.Values, k, v string) {
	if v != "" {
		q.Set(k, v)
	}
}

func (c *Client) GetProject(ctx context.Context, ref domain.ProjectRef) (domain.Project, error) {
	var dto projectDTO
	if err := c.do(ctx, http.MethodGet, "projects/"+url.PathEscape(ref.Name), refValues(ref), nil, &dto); err != nil {
		return domain.Project{}, err
	}
	return mapProject(dto), nil
}

func (c *Client) ListProjects(ctx context.Context, f ProjectFilters) ([]domain.Project, error) {
	var dtos []projectDTO
	if err := c.do(ctx, http.MethodGet, "projects", f.values(), nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]domain.Project, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, mapProject(dto))
	}
	return out, nil
}

func (c *Client) DeployProject(ctx context.Context, spec domain.ProjectSpec) (domain.Project, error) {
	var dto projectDTO
	if err := c.do(ctx, http.MethodPost, "projects", nil, spec, &dto); err != nil {
		return domain.Project{}, err
	}
	return mapProject(dto), nil
}

func (c *Client) PatchProject(ctx context.Context, name string, ops []domain.PatchOp) (domain.Project, error) {
	var dto projectDTO
	if err := c.do(ctx, http.MethodPatch, "projects/"+url.PathEscape(name), nil, ops, &dto); err != nil {
		return domain.Project{}, err
	}
	return mapProject(dto), nil
}

func (c *Client) DeleteProject(ctx context.Context, ref domain.ProjectRef) error {
	return c.do(ctx, http.MethodDelete, "projects/"+url.PathEscape(ref.Name), refValues(ref), nil, nil)
}

// ValidateSpec submits the spec for server-side schema validation. A nil
// error means the document passed.
func (c *Client) ValidateSpec(ctx context.Context, spec domain.ProjectSpec) error {
	return c.do(ctx, http.MethodPost, "validate", nil, spec, nil)
}

func (c *Client) AllowProject(ctx context.Context, name string, perm domain.Permission) (domain.Confirmation, error) {
	var dto confirmationDTO
	if err := c.do(ctx, http.MethodPost, "projects/"+url.PathEscape(name)+"/permissions", nil, perm, &dto); err != nil {
		return domain.Confirmation{}, err
	}
	return domain.Confirmation{Detail: dto.Detail}, nil
}

func (c *Client) ListRoutes(ctx context.Context, f ProjectFilters) ([]domain.Route, error) {
	var dtos []routeDTO
	if err := c.do(ctx, http.MethodGet, "routes", f.values(), nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]domain.Route, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, mapRoute(dto))
	}
	return out, nil
}

func (c *Client) GetRoute(ctx context.Context, name string) (domain.Route, error) {
	var dto routeDTO
	if err := c.do(ctx, http.MethodGet, "routes/"+url.PathEscape(name), nil, nil, &dto); err != nil {
		return domain.Route{}, err
	}
	return mapRoute(dto), nil
}

func (c *Client) GetUsers(ctx context.Context) ([]domain.User, error) {
	var dtos []userDTO
	if err := c.do(ctx, http.MethodGet, "users", nil, nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, domain.User{
			Username:   dto.Username,
			Email:      dto.Email,
			CurrentOrg: dto.CurrentOrg.Name,
		})
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, q url.Values, body, out any) error {
	op := func() error {
		reqURL := c.baseURL + "/" + endpoint
		if len(q) > 0 {
			reqURL += "?" + q.Encode()
		}

		var rd io.Reader
		if body != nil {
			b, err := json.Marshal(body)
			if err != nil {
				return backoff.Permanent(err)
			}
			rd = bytes.NewReader(b)
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, rd)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode == http.StatusTooManyRequests {
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if sec, _ := strconv.Atoi(ra); sec > 0 {
					select {
					case <-time.After(time.Duration(sec) * time.Second):
					case <-ctx.Done():
						return backoff.Permanent(ctx.Err())
					}
				}
			}
			return fmt.Errorf("deploy manager 429")
		}

		if resp.StatusCode >= 500 {
			return fmt.Errorf("deploy manager %s", resp.Status)
		}

		if resp.StatusCode >= 300 {
			return backoff.Permanent(readAPIError(resp))
		}

		if out != nil {
			return json.NewDecoder(resp.Body).Decode(out)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 300 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = 5 * time.Second

	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}

func readAPIError(resp *http.Response) *domain.APIError {
	raw, _ := io.ReadAll(resp.Body)

	var body struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Detail != nil {
		return &domain.APIError{Status: resp.StatusCode, Detail: body.Detail}
	}
	if len(raw) > 0 {
		return &domain.APIError{Status: resp.StatusCode, Detail: string(raw)}
	}
	return &domain.APIError{Status: resp.StatusCode}
}

func mapProject(dto projectDTO) domain.Project {
	p := domain.Project{
		Name:        dto.Name,
		Org:         dto.Org,
		Owner:       dto.Owner,
		Description: dto.Description,
		Status:      dto.Status,
		CreatedAt:   dto.CreatedAt,
	}
	if dto.LastRevision != nil {
		p.LastRevision = &domain.Revision{
			Number:    dto.LastRevision.Number,
			Status:    mapRevisionStatus(dto.LastRevision.Status),
			Author:    dto.LastRevision.Author,
			CreatedAt: dto.LastRevision.CreatedAt,
			Spec:      dto.LastRevision.Spec,
		}
	}
	for _, s := range dto.Stages {
		p.Stages = append(p.Stages, domain.Stage{
			Name:         s.Name,
			Status:       mapStageStatus(s.Status),
			ErrorMessage: s.ErrorMessage,
			UpdatedAt:    s.UpdatedAt,
		})
	}
	for _, b := range dto.Builds {
		p.Builds = append(p.Builds, domain.Build{
			Name:        b.Name,
			Status:      mapBuildStatus(b.Status),
			Stage:       b.Stage,
			WorkflowRef: b.WorkflowRef,
			UpdatedAt:   b.UpdatedAt,
			ImageDigest: b.ImageDigest,
			CommitSHA:   b.CommitSHA,
		})
	}
	for _, r := range dto.Routes {
		p.Routes = append(p.Routes, mapRoute(r))
	}
	return p
}

func mapRoute(dto routeDTO) domain.Route {
	return domain.Route{
		Name:          dto.Name,
		Status:        mapRouteStatus(dto.Status),
		URL:           dto.URL,
		CustomDomains: dto.CustomDomains,
		Stage:         dto.Stage,
	}
}

func mapRevisionStatus(s string) domain.RevisionStatus {
	switch s {
	case "created":
		return domain.RevisionCreated
	case "no-change":
		return domain.RevisionNoChange
	case "committed", "commited": // the server spells it both ways
		return domain.RevisionCommitted
	case "failed":
		return domain.RevisionFailed
	default:
		return domain.RevisionUnknown
	}
}

func mapStageStatus(s string) domain.StageStatus {
	switch s {
	case "updating":
		return domain.StageUpdating
	case "degraded":
		return domain.StageDegraded
	case "building":
		return domain.StageBuilding
	case "ready":
		return domain.StageReady
	case "error":
		return domain.StageError
	case "healthy":
		return domain.StageHealthy
	default:
		return domain.StageUnknown
	}
}

func mapBuildStatus(s string) domain.BuildStatus {
	switch s {
	case "pending":
		return domain.BuildPending
	case "updating":
		return domain.BuildUpdating
	case "success":
		return domain.BuildSuccess
	case "error":
		return domain.BuildError
	default:
		return domain.BuildUnknown
	}
}

func mapRouteStatus(s string) domain.RouteStatus {
	switch s {
	case "online":
		return domain.RouteOnline
	case "offline":
		return domain.RouteOffline
	case "pending":
		return domain.RoutePending
	case "starting":
		return domain.RouteStarting
	case "error":
		return domain.RouteError
	default:
		return domain.RouteUnknown
	}
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
