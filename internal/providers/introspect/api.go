// Package introspect drives synchronous inference services whose callable
// surface is discovered at runtime: the service is asked to describe its
// endpoints, the best-matching endpoint is scored and selected, and requests
// degrade across candidate services and attempt profiles under load.
package introspect

// Parameter is one declared input of a callable endpoint. Component is the
// UI-component hint the service publishes (Image, Textbox, Slider, Checkbox,
// Number, Dropdown); any field may be empty.
type Parameter struct {
	Label      string
	Component  string
	PythonType string
	HasDefault bool
	Default    any
}

// Endpoint is one callable operation. Named endpoints carry an api name like
// "/generate"; unnamed ones are addressed by function index.
type Endpoint struct {
	Name       string
	Index      int
	Named      bool
	Parameters []Parameter
}

// API describes everything one remote service exposes, named endpoints first,
// each group in declaration order.
type API struct {
	Endpoints []Endpoint
}
