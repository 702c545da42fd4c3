package sessions

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/jrsteele09/authfront/api"
	apperrors "github.com/jrsteele09/authfront/internal/errors"
	"github.com/jrsteele09/authfront/transport"
	pkgerrors "github.com/pkg/errors"
)

const (
	PathCurrent = "/session/"
	PathAll     = "/session/all"
	pathSession = "/session/"
)

// Directory lists and removes the user's sessions. It sends through a
// transport.Sender and so inherits whatever recovery the sender applies.
type Directory struct {
	sender transport.Sender
}

func NewDirectory(sender transport.Sender) (*Directory, error) {
	if sender == nil {
		return nil, errors.New("[NewDirectory] sender is required")
	}
	return &Directory{sender: sender}, nil
}

func (d *Directory) List(ctx context.Context) (*List, error) {
	resp, err := d.get(ctx, PathAll)
	if err != nil {
		return nil, err
	}
	var out List
	if err := resp.Decode(&out); err != nil {
		return nil, pkgerrors.Wrap(err, "decode session list")
	}
	return &out, nil
}

// Current returns the signed in user.
func (d *Directory) Current(ctx context.Context) (*api.CurrentUser, error) {
	resp, err := d.get(ctx, PathCurrent)
	if err != nil {
		return nil, err
	}
	var out api.CurrentUser
	if err := resp.Decode(&out); err != nil {
		return nil, pkgerrors.Wrap(err, "decode current user")
	}
	return &out, nil
}

// Delete revokes the session with the given id.
func (d *Directory) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.ErrEmptySessionID
	}
	req, err := transport.NewRequest(http.MethodDelete, pathSession+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	_, err = d.sender.Send(ctx, req)
	return err
}

func (d *Directory) get(ctx context.Context, path string) (*transport.Response, error) {
	req, err := transport.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return d.sender.Send(ctx, req)
}
