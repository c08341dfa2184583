package manifest

import "fmt"

// FunctionNames returns the declared function names in order, or nil when the
// manifest has no functions section.
func (s *Service) FunctionNames() []string {
	return s.Functions.Names()
}

// Function returns the definition declared under name.
func (s *Service) Function(name string) (*Function, error) {
	fn, ok := s.Functions.Get(name)
	if !ok {
		return nil, fmt.Errorf("function %q is not defined in service %q", name, s.Service)
	}
	return fn, nil
}
