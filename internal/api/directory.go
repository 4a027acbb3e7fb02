package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/officetracker/oit/internal/types"
)

// ListOffices fetches all offices.
func (c *Client) ListOffices(ctx context.Context) ([]types.Office, error) {
	var ds []types.OfficeDTO
	if err := c.getJSON(ctx, "/api/offices", nil, &ds); err != nil {
		return nil, fmt.Errorf("failed to list offices: %w", err)
	}
	return types.ToOffices(ds), nil
}

// CreateOffice creates an office.
func (c *Client) CreateOffice(ctx context.Context, req types.OfficeRequest) (types.Office, error) {
	var d types.OfficeDTO
	if err := c.sendJSON(ctx, http.MethodPost, "/api/offices", req, &d); err != nil {
		return types.Office{}, fmt.Errorf("failed to create office: %w", err)
	}
	return types.ToOffice(d), nil
}

// UpdateOffice replaces an office.
func (c *Client) UpdateOffice(ctx context.Context, id int64, req types.OfficeRequest) (types.Office, error) {
	var d types.OfficeDTO
	path := "/api/offices/" + strconv.FormatInt(id, 10)
	if err := c.sendJSON(ctx, http.MethodPut, path, req, &d); err != nil {
		return types.Office{}, fmt.Errorf("failed to update office %d: %w", id, err)
	}
	return types.ToOffice(d), nil
}

// ListCountries fetches the country catalogue.
func (c *Client) ListCountries(ctx context.Context) ([]types.Country, error) {
	var ds []types.CountryDTO
	if err := c.getJSON(ctx, "/api/countries", nil, &ds); err != nil {
		return nil, fmt.Errorf("failed to list countries: %w", err)
	}
	return types.ToCountries(ds), nil
}

// ListUsers fetches all users.
func (c *Client) ListUsers(ctx context.Context) ([]types.User, error) {
	var ds []types.UserDTO
	if err := c.getJSON(ctx, "/api/users", nil, &ds); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return types.ToUsers(ds), nil
}

// Profile fetches the viewer's profile.
func (c *Client) Profile(ctx context.Context) (types.Profile, error) {
	var d types.UserDTO
	if err := c.getJSON(ctx, "/api/users/me", nil, &d); err != nil {
		return types.Profile{}, fmt.Errorf("failed to fetch profile: %w", err)
	}
	return types.ToProfile(d), nil
}

// UpdateProfile saves the viewer's profile.
func (c *Client) UpdateProfile(ctx context.Context, u types.ProfileUpdate) (types.Profile, error) {
	var d types.UserDTO
	if err := c.sendJSON(ctx, http.MethodPut, "/api/users/me", u, &d); err != nil {
		return types.Profile{}, fmt.Errorf("failed to update profile: %w", err)
	}
	return types.ToProfile(d), nil
}

// SessionStatus asks the backend whether the session cookie is authenticated.
// An unauthenticated session is not an error.
func (c *Client) SessionStatus(ctx context.Context) (types.SessionStatus, error) {
	var d types.SessionDTO
	if err := c.getJSON(ctx, "/api/auth/status", nil, &d); err != nil {
		if StatusCode(err) == http.StatusUnauthorized {
			return types.SessionStatus{}, nil
		}
		return types.SessionStatus{}, fmt.Errorf("failed to fetch session status: %w", err)
	}
	return types.ToSessionStatus(d), nil
}

// LoginURL returns the URL that starts the identity provider flow.
func (c *Client) LoginURL(provider string) string {
	return c.buildURL("/oauth2/authorization/"+provider, nil)
}

// Logout ends the session.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.sendJSON(ctx, http.MethodPost, "/logout", nil, nil); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}
	return nil
}
