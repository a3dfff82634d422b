// Package drvhost runs vendor drivers in a child process so a call that
// never returns can be ended by killing the process.
package drvhost

import (
	"net/rpc"

	"github.com/hashicorp/go-plugin"
)

const PluginName = "driver"

// Handshake must match between monitorasat and satdriverhost.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "ARIUSMONITOR_DRIVER_HOST",
	MagicCookieValue: "sat_driver_host",
}

// DriverPlugin is the plugin.Plugin serving a Host over net/rpc.
type DriverPlugin struct {
	// Impl is only set on the host side.
	Impl *Host
}

func (p *DriverPlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return &RPCServer{Impl: p.Impl}, nil
}

func (p *DriverPlugin) Client(b *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &RPCClient{client: c}, nil
}

// PluginMap is what both sides hand to go-plugin.
func PluginMap(impl *Host) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{PluginName: &DriverPlugin{Impl: impl}}
}
