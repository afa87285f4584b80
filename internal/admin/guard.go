// Package admin decides, per request, whether the caller may see the admin
// dashboard and loads the dashboard data once they may.
package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/carepulse-dev/carepulse/internal/graphql"
	"github.com/carepulse-dev/carepulse/internal/models"
)

// Client is the slice of the GraphQL client the guard needs
type Client interface {
	Me(ctx context.Context) (*models.Identity, error)
	Appointments(ctx context.Context, status models.AppointmentStatus) (*models.AppointmentList, error)
	AppointmentStats(ctx context.Context) (*models.AppointmentStats, error)
	ScheduleAppointment(ctx context.Context, id string, schedule time.Time) (*models.AppointmentResult, error)
	CancelAppointment(ctx context.Context, id, reason string) (*models.AppointmentResult, error)
}

// ClientFactory builds a client that acts with the given cookie header
type ClientFactory func(cookieHeader string) Client

// UpstreamClients returns a factory of server-mode GraphQL clients sharing httpClient
func UpstreamClients(endpoint string, httpClient *http.Client, log zerolog.Logger) ClientFactory {
	return func(cookieHeader string) Client {
		return graphql.NewServerClient(graphql.ServerOptions{
			Endpoint:     endpoint,
			CookieHeader: cookieHeader,
			HTTPClient:   httpClient,
			Logger:       log,
		})
	}
}

// Guard is the authoritative admin check
type Guard struct {
	newClient  ClientFactory
	timeout    time.Duration
	redirectTo string
	log        zerolog.Logger
}

// NewGuard creates a guard. Denied requests are sent to redirectTo.
func NewGuard(newClient ClientFactory, timeout time.Duration, redirectTo string, log zerolog.Logger) *Guard {
	if redirectTo == "" {
		redirectTo = "/?admin=true"
	}
	return &Guard{
		newClient:  newClient,
		timeout:    timeout,
		redirectTo: redirectTo,
		log:        log,
	}
}

// Authorization is the outcome of an identity check. Exactly one of
// Identity and RedirectTo is set.
type Authorization struct {
	Identity   *models.Identity
	RedirectTo string

	client Client
}

// Denied reports whether the caller must be redirected
func (a Authorization) Denied() bool {
	return a.RedirectTo != ""
}

func (g *Guard) deny() Authorization {
	return Authorization{RedirectTo: g.redirectTo}
}

// Authorize confirms that cookieHeader belongs to an ADMIN. It fails closed:
// a missing cookie, a non-admin role, an auth error or any other error denies.
func (g *Guard) Authorize(ctx context.Context, cookieHeader string) Authorization {
	if cookieHeader == "" {
		return g.deny()
	}

	client := g.newClient(cookieHeader)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	me, err := client.Me(ctx)
	switch {
	case err != nil && graphql.IsAuthFailure(err):
		g.log.Debug().Err(err).Msg("Session rejected by backend")
		return g.deny()
	case err != nil:
		g.log.Warn().Err(err).Msg("Identity check failed, denying admin access")
		return g.deny()
	case me == nil:
		return g.deny()
	case !me.IsAdmin():
		g.log.Info().Str("user_id", me.ID).Str("role", string(me.Role)).Msg("Non-admin denied admin access")
		return g.deny()
	}

	return Authorization{Identity: me, client: client}
}
