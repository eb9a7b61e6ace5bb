package event

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/auto-dns/docker-vhoster/internal/domain"
	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"
)

const subscribeBufferSize = 100

func eventFilters() filters.Args {
	return filters.NewArgs(
		filters.Arg("type", string(events.ContainerEventType)),
		filters.Arg("event", string(events.ActionStart)),
		filters.Arg("event", string(events.ActionStop)),
		filters.Arg("event", string(events.ActionDie)),
	)
}

// Subscribe streams container start/stop/die events. A non-zero since replays
// events raised after that instant. The returned channel is closed when the
// engine ends the stream or ctx is cancelled.
func (dg *DockerGenerator) Subscribe(ctx context.Context, since time.Time) (<-chan domain.ContainerEvent, error) {
	options := events.ListOptions{Filters: eventFilters()}
	if !since.IsZero() {
		options.Since = since.Format(time.RFC3339Nano)
	}
	eventCh, errCh := dg.cli.Events(ctx, options)

	out := make(chan domain.ContainerEvent, subscribeBufferSize)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				dg.logger.Info().Msg("Docker watcher cancelled by context")
				return
			case err, ok := <-errCh:
				if !ok {
					dg.logger.Info().Msg("Docker error channel closed")
					return
				}
				switch {
				case err == nil:
					continue
				case errors.Is(err, io.EOF):
					dg.logger.Info().Msg("Docker events stream closed by the engine")
				case errors.Is(err, context.Canceled):
					dg.logger.Info().Msg("Docker events stream cancelled")
				default:
					dg.logger.Error().Err(err).Msg("Error from Docker events stream")
				}
				return
			case msg, ok := <-eventCh:
				if !ok {
					dg.logger.Info().Msg("Docker events channel closed")
					return
				}

				event, convErr := fromEventsMessage(msg)
				if convErr != nil {
					var unsupported *UnsupportedEventTypeError
					if errors.As(convErr, &unsupported) {
						dg.logger.Debug().Err(convErr).Msg("Error converting docker event message to container event")
					} else {
						dg.logger.Error().Err(convErr).Msg("converting docker event message to container event")
					}
					continue
				}

				dg.logger.Debug().Msgf("Received Docker event: %+v", event)
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
