package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrTagInstallationExists   = goerr.NewTag("installation_exists")
	ErrTagInstallationNotFound = goerr.NewTag("installation_not_found")
)

// Installation is the stored record of one GitHub App installation
type Installation struct {
	ID                  int64     `json:"id" firestore:"id"`
	Login               string    `json:"login" firestore:"login"`
	AccountType         string    `json:"account_type" firestore:"account_type"`
	AvatarURL           string    `json:"avatar_url" firestore:"avatar_url"`
	RepositorySelection string    `json:"repository_selection" firestore:"repository_selection"`
	SettingsRef         string    `json:"settings_ref" firestore:"settings_ref"`
	Settings            Settings  `json:"settings" firestore:"settings"`
	CreatedAt           time.Time `json:"created_at" firestore:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" firestore:"updated_at"`
}

// SettingsLocation points at the settings file of an installation
type SettingsLocation struct {
	Owner string
	Repo  string
	Path  string
}

// FullName returns "owner/repo"
func (l SettingsLocation) FullName() string {
	return l.Owner + "/" + l.Repo
}

func (l SettingsLocation) String() string {
	return fmt.Sprintf("%s/%s@%s", l.Owner, l.Repo, l.Path)
}

// ParseSettingsRef parses "owner/repo@path/to/settings.json"
func ParseSettingsRef(ref string) (SettingsLocation, error) {
	repo, path, ok := strings.Cut(ref, "@")
	if !ok || path == "" {
		return SettingsLocation{}, goerr.New("settings ref must be owner/repo@path", goerr.V("ref", ref))
	}
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return SettingsLocation{}, goerr.New("settings ref must be owner/repo@path", goerr.V("ref", ref))
	}
	return SettingsLocation{Owner: owner, Repo: name, Path: path}, nil
}
