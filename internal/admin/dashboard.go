package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carepulse-dev/carepulse/internal/models"
)

// Dashboard is the data shown on the admin page
type Dashboard struct {
	Appointments []models.Appointment
	Stats        models.AppointmentStats
}

// Result is what the admin page handler acts on
type Result struct {
	Identity   *models.Identity
	Dashboard  Dashboard
	RedirectTo string
}

// Denied reports whether the page must redirect instead of rendering
func (r Result) Denied() bool {
	return r.RedirectTo != ""
}

// AdminPage authorizes the caller and, only if that succeeds, loads the
// appointments and statistics concurrently. Either fetch degrades to empty
// data on failure.
func (g *Guard) AdminPage(ctx context.Context, cookieHeader string) Result {
	auth := g.Authorize(ctx, cookieHeader)
	if auth.Denied() {
		return Result{RedirectTo: auth.RedirectTo}
	}

	var (
		dash Dashboard
		eg   errgroup.Group
	)

	eg.Go(func() error {
		ctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		list, err := auth.client.Appointments(ctx, "")
		if err != nil {
			g.log.Warn().Err(err).Msg("Failed to load appointments")
			return nil
		}
		if list != nil {
			dash.Appointments = list.Appointments
		}
		return nil
	})

	eg.Go(func() error {
		ctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		stats, err := auth.client.AppointmentStats(ctx)
		if err != nil {
			g.log.Warn().Err(err).Msg("Failed to load appointment stats")
			return nil
		}
		if stats != nil {
			dash.Stats = *stats
		}
		return nil
	})

	_ = eg.Wait()

	if dash.Appointments == nil {
		dash.Appointments = []models.Appointment{}
	}
	return Result{Identity: auth.Identity, Dashboard: dash}
}

// ErrActionFailed wraps a rejected schedule or cancel request
var ErrActionFailed = errors.New("appointment action failed")

// ScheduleAppointment re-authorizes the caller and confirms an appointment
func (g *Guard) ScheduleAppointment(ctx context.Context, cookieHeader, id string, when time.Time) (Authorization, error) {
	auth := g.Authorize(ctx, cookieHeader)
	if auth.Denied() {
		return auth, nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	res, err := auth.client.ScheduleAppointment(ctx, id, when)
	return auth, actionErr(res, err)
}

// CancelAppointment re-authorizes the caller and cancels an appointment
func (g *Guard) CancelAppointment(ctx context.Context, cookieHeader, id, reason string) (Authorization, error) {
	auth := g.Authorize(ctx, cookieHeader)
	if auth.Denied() {
		return auth, nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	res, err := auth.client.CancelAppointment(ctx, id, reason)
	return auth, actionErr(res, err)
}

func actionErr(res *models.AppointmentResult, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %w", ErrActionFailed, err)
	}
	if res == nil || !res.Success {
		var msgs []string
		if res != nil {
			for _, e := range res.Errors {
				msgs = append(msgs, e.Message)
			}
		}
		if len(msgs) == 0 {
			return ErrActionFailed
		}
		return fmt.Errorf("%w: %s", ErrActionFailed, strings.Join(msgs, "; "))
	}
	return nil
}
