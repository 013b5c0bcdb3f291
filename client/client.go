// Package client is the Go API client for the session sharing backend.
// It carries session credentials as an HTTP-only cookie, mirrors the
// JSON surfaces of the /v1 endpoint families and applies a default
// timeout to every call so a hung request can never wedge a caller.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout bounds every API call unless overridden with WithTimeout.
const DefaultTimeout = 15 * time.Second

const sessionCookieName = "session_share_token"

// Client talks to the backend REST API.
type Client struct {
	rest *resty.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.rest.SetTimeout(timeout)
	}
}

// WithHTTPClient swaps the underlying HTTP client. Used in tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.rest = resty.NewWithClient(hc).
			SetBaseURL(c.rest.BaseURL).
			SetHeader("Content-Type", "application/json")
	}
}

// New creates a Client for the given server base URL, e.g.
// "https://api.example.com".
func New(baseURL string, opts ...Option) *Client {
	rest := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/") + "/v1").
		SetTimeout(DefaultTimeout).
		SetHeader("Content-Type", "application/json")

	c := &Client{rest: rest}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetSession attaches the session token to subsequent requests.
func (c *Client) SetSession(token string) {
	c.rest.SetCookie(&http.Cookie{Name: sessionCookieName, Value: token})
}

// ClearSession drops the session token.
func (c *Client) ClearSession() {
	c.rest.Cookies = nil
}

// APIError is the error payload returned by the backend.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
	Details    string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("api error (%d): %s: %s", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

// do runs a prepared request and maps non-2xx responses to *APIError.
func (c *Client) do(ctx context.Context, req *resty.Request, method, path string) error {
	apiErr := &APIError{}
	resp, err := req.SetContext(ctx).SetError(apiErr).Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr.StatusCode = resp.StatusCode()
		if apiErr.Message == "" {
			apiErr.Message = resp.Status()
		}
		return apiErr
	}
	return nil
}

// ------------------------
//   Users & sessions
// ------------------------

// Login authenticates with email and password and opens a session.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var out Session
	err := c.do(ctx, c.rest.R().
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out), resty.MethodPost, "/users/login")
	if err != nil {
		return nil, err
	}
	c.SetSession(out.Token)
	return &out, nil
}

// Register creates an account and opens a session.
func (c *Client) Register(ctx context.Context, email, password, name string) (*Session, error) {
	var out Session
	err := c.do(ctx, c.rest.R().
		SetBody(map[string]string{"email": email, "password": password, "name": name}).
		SetResult(&out), resty.MethodPost, "/users/register")
	if err != nil {
		return nil, err
	}
	c.SetSession(out.Token)
	return &out, nil
}

// GoogleAuth signs in with a Google ID token.
func (c *Client) GoogleAuth(ctx context.Context, idToken string) (*Session, error) {
	var out Session
	err := c.do(ctx, c.rest.R().
		SetBody(map[string]string{"token": idToken}).
		SetResult(&out), resty.MethodPost, "/users/google-auth")
	if err != nil {
		return nil, err
	}
	c.SetSession(out.Token)
	return &out, nil
}

// Logout closes the session server-side and drops the local token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, c.rest.R(), resty.MethodPost, "/users/logout"); err != nil {
		return err
	}
	c.ClearSession()
	return nil
}

// Me returns the authenticated identity with its organization list.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	err := c.do(ctx, c.rest.R().SetResult(&out), resty.MethodGet, "/users/me")
	if err != nil {
		return nil, err
	}
	return &out.User, nil
}

// InvitationInfo looks up a public invitation by its code.
func (c *Client) InvitationInfo(ctx context.Context, code string) (*InvitationInfo, error) {
	var out InvitationInfo
	err := c.do(ctx, c.rest.R().
		SetPathParam("code", code).
		SetResult(&out), resty.MethodGet, "/users/invitation/{code}")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AcceptInvite consumes an invitation for the signed-in user.
func (c *Client) AcceptInvite(ctx context.Context, code string) (*AcceptedInvite, error) {
	var out AcceptedInvite
	err := c.do(ctx, c.rest.R().
		SetBody(map[string]string{"invite_code": code}).
		SetResult(&out), resty.MethodPost, "/users/accept-invite")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ForgotPassword requests a password reset mail.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, c.rest.R().
		SetBody(map[string]string{"email": email}), resty.MethodPost, "/users/forgot-password")
}

// ResetPassword consumes a reset token and sets a new password.
func (c *Client) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	return c.do(ctx, c.rest.R().
		SetBody(map[string]string{"email": email, "token": token, "new_password": newPassword}),
		resty.MethodPost, "/users/reset-password")
}

// ------------------------
//   Organizations
// ------------------------

// CreateOrganization creates an organization owned by the caller.
func (c *Client) CreateOrganization(ctx context.Context, name, domain string, isDomainOpen bool, orgType string) (*Organization, error) {
	var out Organization
	err := c.do(ctx, c.rest.R().
		SetBody(map[string]any{
			"name":           name,
			"domain":         domain,
			"is_domain_open": isDomainOpen,
			"type":           orgType,
		}).
		SetResult(&out), resty.MethodPost, "/organizations")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Organization loads the full membership graph of one organization.
func (c *Client) Organization(ctx context.Context, orgID string) (*OrganizationDetails, error) {
	var out OrganizationDetails
	err := c.do(ctx, c.rest.R().
		SetPathParam("id", orgID).
		SetResult(&out), resty.MethodGet, "/organizations/{id}")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateOrganization edits the organization. Nil fields are untouched.
func (c *Client) UpdateOrganization(ctx context.Context, orgID string, update OrganizationUpdate) (*Organization, error) {
	var out Organization
	err := c.do(ctx, c.rest.R().
		SetPathParam("id", orgID).
		SetBody(update).
		SetResult(&out), resty.MethodPut, "/organizations/{id}")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteOrganization removes an organization. Owner only.
func (c *Client) DeleteOrganization(ctx context.Context, orgID string) error {
	return c.do(ctx, c.rest.R().
		SetPathParam("id", orgID), resty.MethodDelete, "/organizations/{id}")
}

// Invite sends invitations to a batch of email addresses.
func (c *Client) Invite(ctx context.Context, orgID string, entries []InviteEntry) ([]Invitation, error) {
	emails := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		emails = append(emails, map[string]string{"email": e.Email, "user_role": e.Role})
	}

	var out struct {
		Invitations []Invitation `json:"invitations"`
	}
	err := c.do(ctx, c.rest.R().
		SetBody(map[string]any{"organization_id": orgID, "emails": emails}).
		SetResult(&out), resty.MethodPost, "/organizations/invite")
	if err != nil {
		return nil, err
	}
	return out.Invitations, nil
}

// CancelInvite withdraws a pending invitation.
func (c *Client) CancelInvite(ctx context.Context, orgID, inviteID string) error {
	return c.do(ctx, c.rest.R().
		SetPathParams(map[string]string{"id": orgID, "invite_id": inviteID}),
		resty.MethodDelete, "/organizations/{id}/invitations/{invite_id}")
}

// AddModerator grants the moderator role to the member with this email.
func (c *Client) AddModerator(ctx context.Context, orgID, email string) error {
	return c.roleChange(ctx, "/organizations/moderators/add", resty.MethodPost, orgID, email)
}

// RemoveModerator revokes the moderator role.
func (c *Client) RemoveModerator(ctx context.Context, orgID, email string) error {
	return c.roleChange(ctx, "/organizations/moderators/delete", resty.MethodDelete, orgID, email)
}

// AddEditor grants the editor role to the member with this email.
func (c *Client) AddEditor(ctx context.Context, orgID, email string) error {
	return c.roleChange(ctx, "/organizations/editors/add", resty.MethodPost, orgID, email)
}

// RemoveEditor revokes the editor role.
func (c *Client) RemoveEditor(ctx context.Context, orgID, email string) error {
	return c.roleChange(ctx, "/organizations/editors/delete", resty.MethodDelete, orgID, email)
}

func (c *Client) roleChange(ctx context.Context, path, method, orgID, email string) error {
	return c.do(ctx, c.rest.R().
		SetBody(map[string]string{"organization_id": orgID, "email": email}), method, path)
}

// RemoveMember removes a member from the organization.
func (c *Client) RemoveMember(ctx context.Context, orgID, userID string) error {
	return c.do(ctx, c.rest.R().
		SetBody(map[string]string{"organization_id": orgID, "user_id": userID}),
		resty.MethodDelete, "/organizations/member/remove")
}

// UpdateCategories applies a batch of category renames, deletions and adds
// and returns the resulting category list.
func (c *Client) UpdateCategories(ctx context.Context, orgID string, diff CategoryDiff) ([]Category, error) {
	renames := make([]map[string]string, 0, len(diff.Renames))
	for _, r := range diff.Renames {
		renames = append(renames, map[string]string{"id": r.ID, "name": r.Name})
	}

	var out struct {
		Categories []Category `json:"user_categories"`
	}
	err := c.do(ctx, c.rest.R().
		SetBody(map[string]any{
			"organization_id": orgID,
			"renames":         renames,
			"deletions":       diff.Deletions,
			"adds":            diff.Adds,
		}).
		SetResult(&out), resty.MethodPut, "/organizations/categories/update")
	if err != nil {
		return nil, err
	}
	return out.Categories, nil
}

// UpdateMemberCategory assigns or clears a member's category label.
// Pass "none" or the empty string to clear it.
func (c *Client) UpdateMemberCategory(ctx context.Context, orgID, userID, categoryName string) error {
	return c.do(ctx, c.rest.R().
		SetBody(map[string]string{
			"organization_id": orgID,
			"user_id":         userID,
			"category_name":   categoryName,
		}), resty.MethodPut, "/organizations/members/update")
}

// ------------------------
//   Service catalog
// ------------------------

// Services lists the organization's service catalog, walking the
// paginated endpoint until every entry has been fetched.
func (c *Client) Services(ctx context.Context, orgID string) ([]Service, error) {
	const pageSize = 200

	var all []Service
	for page := 1; ; page++ {
		var out struct {
			Items    []Service `json:"items"`
			Page     int       `json:"page"`
			PageSize int       `json:"page_size"`
			Total    int       `json:"total"`
		}
		err := c.do(ctx, c.rest.R().
			SetPathParam("id", orgID).
			SetQueryParam("page", strconv.Itoa(page)).
			SetQueryParam("page_size", strconv.Itoa(pageSize)).
			SetResult(&out), resty.MethodGet, "/services/organization/{id}")
		if err != nil {
			return nil, err
		}

		all = append(all, out.Items...)
		if len(all) >= out.Total || len(out.Items) == 0 {
			return all, nil
		}
	}
}

// CreateService submits a new catalog entry. The cookie bundle is
// sealed server-side before it is stored.
func (c *Client) CreateService(ctx context.Context, orgID string, in ServiceInput) (*Service, error) {
	body := serviceBody(in)
	body["organization_id"] = orgID

	var out Service
	err := c.do(ctx, c.rest.R().
		SetBody(body).
		SetResult(&out), resty.MethodPost, "/services")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateService edits a catalog entry. Zero-valued fields are omitted
// and left unchanged; submitting no cookies keeps the sealed bundle.
func (c *Client) UpdateService(ctx context.Context, serviceID, orgID string, in ServiceInput) (*Service, error) {
	var out Service
	err := c.do(ctx, c.rest.R().
		SetPathParams(map[string]string{"service_id": serviceID, "id": orgID}).
		SetBody(serviceBody(in)).
		SetResult(&out), resty.MethodPut, "/services/{service_id}/organization/{id}")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func serviceBody(in ServiceInput) map[string]any {
	body := map[string]any{}
	if in.Name != "" {
		body["name"] = in.Name
	}
	if in.Domain != "" {
		body["domain"] = in.Domain
	}
	if in.Category != "" {
		body["category"] = in.Category
	}
	if in.LogoURL != "" {
		body["logo_url"] = in.LogoURL
	}
	if in.Tags != nil {
		body["tags"] = in.Tags
	}
	if len(in.Cookies) > 0 {
		body["cookies"] = in.Cookies
		body["cookie_ttl_hours"] = in.CookieTTLHours
	}
	return body
}

// Service loads one catalog entry with its sealed cookie bundle.
func (c *Client) Service(ctx context.Context, serviceID, orgID string) (*Service, error) {
	var out Service
	err := c.do(ctx, c.rest.R().
		SetPathParams(map[string]string{"service_id": serviceID, "id": orgID}).
		SetResult(&out), resty.MethodGet, "/services/{service_id}/organization/{id}")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteService removes a catalog entry.
func (c *Client) DeleteService(ctx context.Context, serviceID, orgID string) error {
	return c.do(ctx, c.rest.R().
		SetPathParams(map[string]string{"service_id": serviceID, "id": orgID}),
		resty.MethodDelete, "/services/{service_id}/organization/{id}")
}

// Keys fetches the organization key material used to open sealed bundles.
func (c *Client) Keys(ctx context.Context, orgID string) (*Keys, error) {
	var out Keys
	err := c.do(ctx, c.rest.R().
		SetPathParam("id", orgID).
		SetResult(&out), resty.MethodGet, "/services/keys/{id}")
	if err != nil {
		return nil, err
	}
	return &out, nil
}
