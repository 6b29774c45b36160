// Package appinfo reports build information for health output and logs
package appinfo

import (
	"os"
	"runtime/debug"
)

const unknownVersion = "0.0.0-unknown"

// Version returns APP_VERSION when set, otherwise the main module
// version or VCS revision recorded by the Go toolchain.
func Version() string {
	if v := os.Getenv("APP_VERSION"); v != "" {
		return v
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return unknownVersion
	}
	return versionFrom(info)
}

func versionFrom(info *debug.BuildInfo) string {
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return unknownVersion
}
