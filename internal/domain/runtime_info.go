package domain

import "fmt"

const UnknownComponent = "<Unknown>"

// RuntimeInfo describes the container engine reached during the handshake.
type RuntimeInfo struct {
	Platform      string
	EngineVersion string
	APIVersion    string
}

func (ri RuntimeInfo) Render() string {
	return fmt.Sprintf("%s, engine %s (api %s)", ri.Platform, ri.EngineVersion, ri.APIVersion)
}
