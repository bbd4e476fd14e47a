package models

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrMissingServer   = errors.New("server is required")
	ErrMissingUsername = errors.New("username is required")
	ErrMissingPassword = errors.New("password is required")
	ErrInvalidServer   = errors.New("server must be a valid http or https URL")
)

// Credentials identify one account on one upstream provider.
type Credentials struct {
	Server   string `json:"server"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// NewCredentials validates and normalises user input. The server gets an
// http:// scheme when none is given and loses any trailing slashes.
func NewCredentials(server, username, password string) (Credentials, error) {
	server = strings.TrimSpace(server)
	username = strings.TrimSpace(username)
	switch {
	case server == "":
		return Credentials{}, ErrMissingServer
	case username == "":
		return Credentials{}, ErrMissingUsername
	case password == "":
		return Credentials{}, ErrMissingPassword
	}
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	server = strings.TrimRight(server, "/")
	u, err := url.ParseRequestURI(server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Credentials{}, fmt.Errorf("%w: %q", ErrInvalidServer, server)
	}
	return Credentials{Server: server, Username: username, Password: password}, nil
}
