// Package teams checks GitHub team membership for team-owned crates.
package teams

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/joaopapereira/crates.io/internal/common"
	"github.com/joaopapereira/crates.io/internal/server/models"
)

// GitHub resolves "github:org:team" logins against the GitHub API.
type GitHub struct {
	base   string
	token  string
	client *http.Client
}

// NewGitHub uses token when the acting user carries no access token of
// their own.
func NewGitHub(baseURL, token string, client *http.Client) *GitHub {
	return &GitHub{base: strings.TrimRight(baseURL, "/"), token: token, client: client}
}

type githubTeam struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type githubOrg struct {
	AvatarURL *string `json:"avatar_url"`
}

type githubMembership struct {
	State string `json:"state"`
}

// ParseLogin splits a team login into organization and team.
func ParseLogin(login string) (org, team string, err error) {
	parts := strings.SplitN(login, ":", 3)
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return "", "", common.Human("missing github team argument; format is github:org:team")
	}
	if parts[0] != "github" {
		return "", "", common.Human("unknown organization handler, only 'github:org:team' is supported")
	}
	return parts[1], parts[2], nil
}

// Lookup finds the team behind login, requiring user to be an active
// member of it.
func (g *GitHub) Lookup(ctx context.Context, login string, user *models.User) (*models.Team, error) {
	org, name, err := ParseLogin(login)
	if err != nil {
		return nil, err
	}

	var teams []githubTeam
	if _, err := g.get(ctx, user, fmt.Sprintf("/orgs/%s/teams", url.PathEscape(org)), &teams); err != nil {
		return nil, err
	}
	var found *githubTeam
	for i := range teams {
		if strings.EqualFold(teams[i].Slug, name) || strings.EqualFold(teams[i].Name, name) {
			found = &teams[i]
			break
		}
	}
	if found == nil {
		return nil, common.Human("could not find the github team %s/%s", org, name)
	}

	ok, err := g.isMember(ctx, found.ID, user)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.Forbidden("only members of " + login + " can add it as an owner")
	}

	var o githubOrg
	if _, err := g.get(ctx, user, fmt.Sprintf("/orgs/%s", url.PathEscape(org)), &o); err != nil {
		return nil, err
	}

	teamName := found.Name
	return &models.Team{
		Login:    strings.ToLower(login),
		GithubID: found.ID,
		Name:     &teamName,
		Avatar:   o.AvatarURL,
	}, nil
}

// IsMember reports whether user is an active member of team.
func (g *GitHub) IsMember(ctx context.Context, team *models.Team, user *models.User) (bool, error) {
	return g.isMember(ctx, team.GithubID, user)
}

func (g *GitHub) isMember(ctx context.Context, teamID int64, user *models.User) (bool, error) {
	var m githubMembership
	status, err := g.get(ctx, user,
		fmt.Sprintf("/teams/%d/memberships/%s", teamID, url.PathEscape(user.GhLogin)), &m)
	if status == http.StatusNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return m.State == "active", nil
}

func (g *GitHub) get(ctx context.Context, user *models.User, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.base+path, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	token := g.token
	if user != nil && user.GhAccessToken != "" {
		token = user.GhAccessToken
	}
	if token != "" {
		req.Header.Set("Authorization", "token "+token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("github %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, fmt.Errorf("github %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("github %s: decode: %w", path, err)
	}
	return resp.StatusCode, nil
}
