package identity

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
	"github.com/pyramid-aftercare/portal/internal/core/ports"
)

// TokenSource supplies the bearer token for profile calls.
type TokenSource interface {
	AccessToken(ctx context.Context) string
}

// signUpTokenSource is a TokenSource that also holds tokens issued at
// sign-up, which authorize the new user's first profile insert.
type signUpTokenSource interface {
	takeSignUpToken(userID string) (string, bool)
}

// ProfileRepository reads and writes profile rows through the identity
// API's /rest/v1/user_profiles resource.
type ProfileRepository struct {
	client *Client
	tokens TokenSource
}

var _ ports.ProfileRepository = (*ProfileRepository)(nil)

func NewProfileRepository(client *Client, tokens TokenSource) *ProfileRepository {
	return &ProfileRepository{client: client, tokens: tokens}
}

var profileStatusErrs = map[int]error{
	http.StatusNotFound:            domain.ErrProfileNotFound,
	http.StatusConflict:            domain.ErrUserExists,
	http.StatusBadRequest:          domain.ErrInvalidProfile,
	http.StatusUnprocessableEntity: domain.ErrInvalidProfile,
	http.StatusUnauthorized:        domain.ErrNotAuthenticated,
}

func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*domain.ProfileRecord, error) {
	var p domain.ProfileRecord
	err := r.client.do(ctx, request{
		method:     http.MethodGet,
		path:       "/rest/v1/user_profiles/" + url.PathEscape(id),
		token:      r.tokens.AccessToken(ctx),
		out:        &p,
		statusErrs: profileStatusErrs,
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepository) Insert(ctx context.Context, p *domain.ProfileRecord) error {
	token := ""
	if src, ok := r.tokens.(signUpTokenSource); ok {
		token, _ = src.takeSignUpToken(p.ID)
	}
	if token == "" {
		token = r.tokens.AccessToken(ctx)
	}
	return r.client.do(ctx, request{
		method:     http.MethodPost,
		path:       "/rest/v1/user_profiles",
		token:      token,
		body:       p,
		statusErrs: profileStatusErrs,
	})
}

func (r *ProfileRepository) Update(ctx context.Context, id string, fields domain.ProfileFields) error {
	return r.client.do(ctx, request{
		method:     http.MethodPatch,
		path:       "/rest/v1/user_profiles/" + url.PathEscape(id),
		token:      r.tokens.AccessToken(ctx),
		body:       fields,
		statusErrs: profileStatusErrs,
	})
}

type lastLoginBody struct {
	LastLogin time.Time `json:"last_login"`
}

func (r *ProfileRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.client.do(ctx, request{
		method:     http.MethodPatch,
		path:       "/rest/v1/user_profiles/" + url.PathEscape(id) + "/last_login",
		token:      r.tokens.AccessToken(ctx),
		body:       lastLoginBody{LastLogin: at},
		statusErrs: profileStatusErrs,
	})
}

func (r *ProfileRepository) List(ctx context.Context, role domain.Role) ([]*domain.ProfileRecord, error) {
	path := "/rest/v1/user_profiles"
	if role != "" {
		path += "?role=" + url.QueryEscape(string(role))
	}
	var out []*domain.ProfileRecord
	err := r.client.do(ctx, request{
		method:     http.MethodGet,
		path:       path,
		token:      r.tokens.AccessToken(ctx),
		out:        &out,
		statusErrs: profileStatusErrs,
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
