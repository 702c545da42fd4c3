package refresh

import (
	"context"

	"github.com/jrsteele09/authfront/transport"
	"github.com/rs/zerolog/log"
)

type authRefresh struct {
	next        transport.Sender
	coordinator *Coordinator
}

var _ transport.Sender = (*authRefresh)(nil)

// WithAuthRefresh decorates next with the retry-once policy: a call failing
// with the expired-token signature triggers one refresh and one replay.
func WithAuthRefresh(next transport.Sender, coordinator *Coordinator) transport.Sender {
	return &authRefresh{next: next, coordinator: coordinator}
}

func (a *authRefresh) Send(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	if req == nil {
		return a.next.Send(ctx, req)
	}
	pending := req.Clone()

	resp, err := a.next.Send(ctx, req)
	if err == nil {
		return resp, nil
	}
	expired, ok := AsAuthExpired(err)
	if !ok {
		return nil, err
	}

	log.Debug().Str("method", expired.Cause.Method).Str("path", expired.Cause.Path).Msg("access token expired, refreshing")
	if _, err := a.coordinator.Refresh(ctx); err != nil {
		return nil, a.coordinator.fail(ctx, err)
	}

	// One replay only: its outcome is final, even another expired-token failure.
	return a.next.Send(ctx, pending)
}
