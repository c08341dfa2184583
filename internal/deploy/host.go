package deploy

import (
	"github.com/joeblew999/cfdeploy/internal/manifest"
)

// ServiceHost adapts a loaded manifest to the Host interface.
type ServiceHost struct {
	Service *manifest.Service
	Logf    func(msg string)
}

// NewServiceHost wraps svc. logf receives the human-readable progress lines.
func NewServiceHost(svc *manifest.Service, logf func(msg string)) *ServiceHost {
	return &ServiceHost{Service: svc, Logf: logf}
}

func (h *ServiceHost) FunctionNames() []string {
	return h.Service.FunctionNames()
}

func (h *ServiceHost) Function(name string) (*manifest.Function, error) {
	return h.Service.Function(name)
}

func (h *ServiceHost) Log(msg string) {
	if h.Logf != nil {
		h.Logf(msg)
	}
}
