package banner

import (
	"fmt"

	"codexmonitor/pkg/config"
)

const banner = `
 ██████╗ ██████╗ ██████╗ ███████╗██╗  ██╗    ███╗   ███╗ ██████╗ ███╗   ██╗
██╔════╝██╔═══██╗██╔══██╗██╔════╝╚██╗██╔╝    ████╗ ████║██╔═══██╗████╗  ██║
██║     ██║   ██║██║  ██║█████╗   ╚███╔╝     ██╔████╔██║██║   ██║██╔██╗ ██║
██║     ██║   ██║██║  ██║██╔══╝   ██╔██╗     ██║╚██╔╝██║██║   ██║██║╚██╗██║
╚██████╗╚██████╔╝██████╔╝███████╗██╔╝ ██╗    ██║ ╚═╝ ██║╚██████╔╝██║ ╚████║
 ╚═════╝ ╚═════╝ ╚═════╝ ╚══════╝╚═╝  ╚═╝    ╚═╝     ╚═╝ ╚═════╝ ╚═╝  ╚═══╝
`

// Print writes the startup banner using the effective config so operators
// can see at a glance what the client is wired to.
func Print(eff config.EffectiveConfigResult, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	if eff.Config.Bridge.URL != "" {
		fmt.Printf("Bridge:   %s\n", eff.Config.Bridge.URL)
	} else {
		fmt.Println("Bridge:   (none, in-memory transport)")
	}
	fmt.Printf("Cache DB: %s\n", eff.DBPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	src := eff.Source
	if src == "" {
		src = "defaults"
	}
	fmt.Printf("Config:   %s\n", src)

	fmt.Println("\n== Sync =======================================================")
	fmt.Printf("Poll interval:  %s\n", eff.Config.Sync.PollInterval.Duration())
	fmt.Printf("Reply timeout:  %s\n", eff.Config.Sync.ReplyTimeout.Duration())
	if eff.Config.Sweep.Enabled {
		cron := eff.Config.Sweep.Cron
		if cron == "" {
			cron = "default"
		}
		fmt.Printf("Cache sweep:    enabled (%s)\n", cron)
	} else {
		fmt.Println("Cache sweep:    disabled")
	}
	if eff.Config.Telemetry.Enabled {
		fmt.Printf("Telemetry:      enabled (%d events)\n", eff.Config.Telemetry.Capacity)
	} else {
		fmt.Println("Telemetry:      disabled")
	}
	if eff.Config.Debug.Addr != "" {
		fmt.Printf("Debug HTTP:     %s (/healthz /readyz /metrics /telemetry)\n", eff.Config.Debug.Addr)
	} else {
		fmt.Println("Debug HTTP:     disabled (set debug.addr to enable)")
	}

	fmt.Println("\n== Logs =======================================================")
}
