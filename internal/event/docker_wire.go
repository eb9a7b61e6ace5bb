package event

import (
	"github.com/auto-dns/docker-vhoster/internal/domain"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
)

func fromInspectResponse(c container.InspectResponse) domain.Container {
	out := domain.Container{}
	if c.ContainerJSONBase != nil {
		out.Id = c.ID
		out.Name = c.Name
	}
	if c.Config != nil {
		out.Env = append([]string(nil), c.Config.Env...)
	}
	return out
}

func fromEventsMessage(msg events.Message) (domain.ContainerEvent, error) {
	ev := domain.ContainerEvent{
		Container: domain.Container{
			Id:   msg.Actor.ID,
			Name: msg.Actor.Attributes["name"],
		},
		EventType: domain.EventType(msg.Action),
	}
	if ev.EventType == domain.EventTypeInitialContainerDetection || !ev.EventType.IsValid() {
		return domain.ContainerEvent{}, NewUnsupportedEventTypeError(ev.EventType)
	}
	return ev, nil
}

func fromServerVersion(v types.Version) domain.RuntimeInfo {
	info := domain.RuntimeInfo{
		Platform:      v.Platform.Name,
		EngineVersion: domain.UnknownComponent,
		APIVersion:    v.APIVersion,
	}
	if info.Platform == "" {
		info.Platform = domain.UnknownComponent
	}
	for _, c := range v.Components {
		if c.Name == "Engine" {
			info.EngineVersion = c.Version
			break
		}
	}
	if info.APIVersion == "" {
		info.APIVersion = domain.UnknownComponent
	}
	return info
}
