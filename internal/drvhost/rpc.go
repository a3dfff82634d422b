package drvhost

import (
	"net/rpc"

	"ariusmonitor.flagee.cloud/internal/driver"
)

type OpenArgs struct {
	Path string
}

type ResolveArgs struct {
	EntryPoint driver.EntryPoint
}

type CallArgs struct {
	Name      string
	SessionID int32
	Args      []string
}

type CreateArgs struct {
	Port  string
	Flags int32
}

type DestroyArgs struct {
	Handle int32
}

// RPCServer runs inside satdriverhost.
type RPCServer struct {
	Impl *Host
}

func (s *RPCServer) Open(args OpenArgs, resp *bool) error {
	*resp = true
	return s.Impl.Open(args.Path)
}

func (s *RPCServer) Resolve(args ResolveArgs, resp *bool) error {
	*resp = true
	return s.Impl.Resolve(args.EntryPoint)
}

func (s *RPCServer) Call(args CallArgs, resp *driver.Answer) (err error) {
	*resp, err = s.Impl.Call(args.Name, args.SessionID, args.Args)
	return err
}

func (s *RPCServer) Create(args CreateArgs, resp *int32) (err error) {
	*resp, err = s.Impl.Create(args.Port, args.Flags)
	return err
}

func (s *RPCServer) Destroy(args DestroyArgs, resp *int32) (err error) {
	*resp, err = s.Impl.Destroy(args.Handle)
	return err
}

func (s *RPCServer) Close(args bool, resp *bool) error {
	*resp = true
	return s.Impl.Close()
}

// RPCClient is the monitor side of RPCServer.
type RPCClient struct {
	client *rpc.Client
}

func (c *RPCClient) Open(path string) error {
	var ok bool
	return c.client.Call("Plugin.Open", OpenArgs{Path: path}, &ok)
}

func (c *RPCClient) Resolve(ep driver.EntryPoint) error {
	var ok bool
	return c.client.Call("Plugin.Resolve", ResolveArgs{EntryPoint: ep}, &ok)
}

func (c *RPCClient) Call(name string, sessionID int32, args []string) (driver.Answer, error) {
	var answer driver.Answer
	err := c.client.Call("Plugin.Call", CallArgs{Name: name, SessionID: sessionID, Args: args}, &answer)
	return answer, err
}

func (c *RPCClient) Create(port string, flags int32) (int32, error) {
	var handle int32
	err := c.client.Call("Plugin.Create", CreateArgs{Port: port, Flags: flags}, &handle)
	return handle, err
}

func (c *RPCClient) Destroy(handle int32) (int32, error) {
	var rc int32
	err := c.client.Call("Plugin.Destroy", DestroyArgs{Handle: handle}, &rc)
	return rc, err
}

func (c *RPCClient) Close() error {
	var ok bool
	return c.client.Call("Plugin.Close", true, &ok)
}
