package meta

import "sync/atomic"

type serviceInfo struct {
	name    string
	version string
}

//nolint:gochecknoglobals // process identity, read by the logger, the tracer and the status server
var service atomic.Pointer[serviceInfo]

// SetServiceInfo records the process name and version. The first call wins.
func SetServiceInfo(name, version string) {
	service.CompareAndSwap(nil, &serviceInfo{name: name, version: version})
}

// GetServiceName returns the recorded name, or "" before SetServiceInfo.
func GetServiceName() string {
	if s := service.Load(); s != nil {
		return s.name
	}
	return ""
}

// GetServiceVersion returns the recorded version, or "" before SetServiceInfo.
func GetServiceVersion() string {
	if s := service.Load(); s != nil {
		return s.version
	}
	return ""
}
