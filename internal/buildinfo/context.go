// Package buildinfo carries build-time metadata injected through ldflags.
package buildinfo

import "runtime/debug"

// UnknownValue is reported for metadata that was not injected at build time.
const UnknownValue = "unknown"

// Context contains build-time metadata that is not user-configurable.
type Context struct {
	version   string
	buildDate string
	commit    string
}

// NewContext creates build metadata. An empty version falls back to the
// module version recorded by the Go toolchain, when there is one.
func NewContext(version, buildDate, commit string) *Context {
	if version == "" {
		if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			version = bi.Main.Version
		}
	}
	return &Context{version: version, buildDate: buildDate, commit: commit}
}

// Version returns the release version used for telemetry and the version command.
func (c *Context) Version() string {
	if c == nil || c.version == "" {
		return UnknownValue
	}
	return c.version
}

// BuildDate returns the build date string
func (c *Context) BuildDate() string {
	if c == nil || c.buildDate == "" {
		return UnknownValue
	}
	return c.buildDate
}

// Commit returns the VCS revision the binary was built from
func (c *Context) Commit() string {
	if c == nil || c.commit == "" {
		return UnknownValue
	}
	return c.commit
}

// Release formats the Sentry release identifier, e.g. "precivox-images@1.2.0".
func (c *Context) Release() string {
	return "precivox-images@" + c.Version()
}
