// satdriverhost loads one vendor driver on behalf of monitorasat. It is
// started by the parent over go-plugin and is not meant to be run by hand.
package main

import (
	"flag"
	"fmt"
	"os"

	"ariusmonitor.flagee.cloud/internal/config"
	"ariusmonitor.flagee.cloud/internal/driver"
	"ariusmonitor.flagee.cloud/internal/drvhost"
	"ariusmonitor.flagee.cloud/internal/logger"

	"github.com/hashicorp/go-plugin"
)

func main() {
	version := flag.Bool("v", false, "Show version info")
	flag.Parse()
	if *version {
		fmt.Printf("satdriverhost %s (%s)\n", config.Version, config.Commit)
		os.Exit(0)
	}

	host := drvhost.NewHost(driver.Open)
	defer host.Close()

	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: drvhost.Handshake,
		Plugins:         drvhost.PluginMap(host),
		Logger:          logger.NewHCLogAdapter("satdriverhost"),
	})
	logger.Debug("Driver host exited")
}
