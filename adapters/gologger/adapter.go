package gologger

import (
	"strings"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-reauth/core"
)

const rootName = "reauth"

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(name, provider, logger)
}

// Component returns the logger for a named reauth component, for example
// "transport" resolves "reauth.transport" from the provider.
func Component(provider glog.LoggerProvider, logger glog.Logger, component string) glog.Logger {
	name := rootName
	if trimmed := strings.Trim(strings.TrimSpace(component), "."); trimmed != "" {
		name = rootName + "." + trimmed
	}
	_, resolved := Resolve(name, provider, logger)
	return glog.Ensure(resolved)
}

// ClientOptions resolves once and hands both the provider and the logger to
// core.NewClient.
func ClientOptions(provider glog.LoggerProvider, logger glog.Logger) []core.Option {
	resolvedProvider, resolvedLogger := Resolve(rootName, provider, logger)
	return []core.Option{
		core.WithLoggerProvider(resolvedProvider),
		core.WithLogger(resolvedLogger),
	}
}
