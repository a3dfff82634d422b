package drvhost

import (
	"fmt"
	"log/slog"
	"os/exec"
	"sync"

	"ariusmonitor.flagee.cloud/internal/driver"
	"ariusmonitor.flagee.cloud/internal/logger"
	"github.com/hashicorp/go-plugin"
)

// Opener starts one satdriverhost process per opened library.
func Opener(hostBinary string) driver.Opener {
	return func(path string) (driver.Library, error) {
		client := plugin.NewClient(&plugin.ClientConfig{
			HandshakeConfig:  Handshake,
			Plugins:          PluginMap(nil),
			Cmd:              exec.Command(hostBinary),
			AllowedProtocols: []plugin.Protocol{plugin.ProtocolNetRPC},
			Logger:           logger.NewHCLogAdapter("driver-host"),
		})

		rpcClient, err := client.Client()
		if err != nil {
			client.Kill()
			return nil, fmt.Errorf("failed to start driver host %s: %w", hostBinary, err)
		}
		raw, err := rpcClient.Dispense(PluginName)
		if err != nil {
			client.Kill()
			return nil, fmt.Errorf("failed to dispense driver from %s: %w", hostBinary, err)
		}

		lib := NewRemoteLibrary(raw.(*RPCClient), client.Kill)
		if err := lib.rpc.Open(path); err != nil {
			client.Kill()
			return nil, err
		}
		return lib, nil
	}
}

// RemoteLibrary is a driver.Library whose calls run in the host process.
type RemoteLibrary struct {
	rpc  *RPCClient
	kill func()
	once sync.Once
}

func NewRemoteLibrary(rpc *RPCClient, kill func()) *RemoteLibrary {
	return &RemoteLibrary{rpc: rpc, kill: kill}
}

func (l *RemoteLibrary) Text(name string, arity int) (driver.TextFunc, error) {
	if err := l.rpc.Resolve(driver.EntryPoint{Name: name, Kind: driver.KindText, Arity: arity}); err != nil {
		return nil, err
	}
	return func(sessionID int32, args ...string) driver.Answer {
		answer, err := l.rpc.Call(name, sessionID, args)
		if err != nil {
			logger.Warn("Driver host call failed", slog.String("entry_point", name), slog.Any("error", err))
			return driver.Null()
		}
		return answer
	}, nil
}

func (l *RemoteLibrary) Create(name string) (driver.CreateFunc, error) {
	if err := l.rpc.Resolve(driver.EntryPoint{Name: name, Kind: driver.KindCreate}); err != nil {
		return nil, err
	}
	return func(port string, flags int32) int32 {
		handle, err := l.rpc.Create(port, flags)
		if err != nil {
			logger.Warn("Driver host create failed", slog.String("port", port), slog.Any("error", err))
			return 0
		}
		return handle
	}, nil
}

func (l *RemoteLibrary) Destroy(name string) (driver.DestroyFunc, error) {
	if err := l.rpc.Resolve(driver.EntryPoint{Name: name, Kind: driver.KindDestroy}); err != nil {
		return nil, err
	}
	return func(handle int32) int32 {
		rc, err := l.rpc.Destroy(handle)
		if err != nil {
			logger.Warn("Driver host destroy failed", slog.Any("error", err))
		}
		return rc
	}, nil
}

// Close unloads the library in the host and stops the process.
func (l *RemoteLibrary) Close() error {
	var err error
	l.once.Do(func() {
		err = l.rpc.Close()
		l.kill()
	})
	return err
}

func (l *RemoteLibrary) Kill() {
	l.once.Do(l.kill)
}
