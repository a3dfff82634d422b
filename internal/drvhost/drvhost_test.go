package drvhost

import (
	"testing"

	"ariusmonitor.flagee.cloud/internal/driver"
	"ariusmonitor.flagee.cloud/internal/driver/drivertest"
	"github.com/hashicorp/go-plugin"
	"github.com/stretchr/testify/require"
)

func dispense(t *testing.T, host *Host) *RPCClient {
	t.Helper()
	client, _ := plugin.TestPluginRPCConn(t, PluginMap(host), nil)
	t.Cleanup(func() { client.Close() })

	raw, err := client.Dispense(PluginName)
	require.NoError(t, err)
	return raw.(*RPCClient)
}

func TestRemoteDriver(t *testing.T) {
	lib := drivertest.New().
		Answers(driver.ConsultarStatusOperacional.Name, driver.Text("Resposta com Sucesso")).
		Ports(map[string]int32{"/dev/lp0": 3})
	host := NewHost(drivertest.Opener(map[string]driver.Library{"/posnet/libsatid.so": lib}))
	rpc := dispense(t, host)
	require.NoError(t, rpc.Open("/posnet/libsatid.so"))

	var kills int
	remote := NewRemoteLibrary(rpc, func() { kills++ })
	d, err := driver.Load(func(string) (driver.Library, error) { return remote, nil }, "/posnet/libsatid.so",
		driver.ConsultarStatusOperacional, driver.Create, driver.Destroy)
	require.NoError(t, err)

	answer, err := d.Call(driver.ConsultarStatusOperacional, 500042, "123456789")
	require.NoError(t, err)
	require.Equal(t, driver.Text("Resposta com Sucesso"), answer)
	require.Equal(t, []int32{500042}, lib.SessionIDs())

	handle, err := d.Create("/dev/lp0", 0)
	require.NoError(t, err)
	require.Equal(t, int32(3), handle)
	_, err = d.Destroy(handle)
	require.NoError(t, err)
	require.Equal(t, []int32{3}, lib.Destroyed)

	require.NoError(t, d.Unload())
	require.Equal(t, 1, lib.CloseCount())
	require.Equal(t, 1, kills)
}

func TestRemoteMissingSymbol(t *testing.T) {
	lib := drivertest.New()
	host := NewHost(drivertest.Opener(map[string]driver.Library{"libsat.so": lib}))
	rpc := dispense(t, host)
	require.NoError(t, rpc.Open("libsat.so"))

	remote := NewRemoteLibrary(rpc, func() {})
	_, err := driver.Load(func(string) (driver.Library, error) { return remote, nil }, "libsat.so", driver.ExtrairLogs)
	require.ErrorIs(t, err, driver.ErrMissingSymbol)
	require.Equal(t, 1, lib.CloseCount())
}

func TestHostOpenErrors(t *testing.T) {
	host := NewHost(drivertest.Opener(nil))
	rpc := dispense(t, host)

	require.Error(t, rpc.Open("/nonexistent.so"))
	require.Error(t, rpc.Resolve(driver.ConsultarStatusOperacional))
	require.NoError(t, rpc.Close())
}

func TestRemoteKillOnce(t *testing.T) {
	var kills int
	remote := NewRemoteLibrary(nil, func() { kills++ })
	remote.Kill()
	remote.Kill()
	require.Equal(t, 1, kills)
}
