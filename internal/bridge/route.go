package bridge

import (
	"fmt"
	"strings"
)

// Route forwards one telemetry field to one OSC address.
type Route struct {
	Field string `json:"field"`
	Path  string `json:"path"`
}

// DefaultRoutes returns the acceleration magnitude and Z-axis gyro routes
// that Sonic Pi sketches listen on.
func DefaultRoutes() []Route {
	return []Route{
		{Field: "am", Path: "/accel"},
		{Field: "gz", Path: "/gyroZ"},
	}
}

func (r Route) String() string {
	return r.Field + "=" + r.Path
}

// ParseRoute parses the field=/path notation used on the command line.
func ParseRoute(s string) (Route, error) {
	field, path, ok := strings.Cut(s, "=")
	if !ok {
		return Route{}, fmt.Errorf("invalid route %q: expected field=/path", s)
	}
	r := Route{Field: strings.TrimSpace(field), Path: strings.TrimSpace(path)}
	if err := r.Validate(); err != nil {
		return Route{}, err
	}
	return r, nil
}

// Validate checks that the field is set and the path is a literal OSC address.
func (r Route) Validate() error {
	if r.Field == "" {
		return fmt.Errorf("route %q: field is required", r.String())
	}
	if !strings.HasPrefix(r.Path, "/") {
		return fmt.Errorf("route %q: OSC path must start with '/'", r.String())
	}
	for _, c := range r.Path {
		if c <= ' ' || c > '~' {
			return fmt.Errorf("route %q: OSC path must be printable ASCII without spaces", r.String())
		}
		// pattern characters are reserved for receivers
		if strings.ContainsRune("#*,?[]{}", c) {
			return fmt.Errorf("route %q: OSC path contains reserved character %q", r.String(), c)
		}
	}
	return nil
}

// ValidateRoutes checks every route and rejects an empty list or duplicates.
func ValidateRoutes(routes []Route) error {
	if len(routes) == 0 {
		return fmt.Errorf("at least one route is required")
	}
	seen := make(map[Route]bool, len(routes))
	for _, r := range routes {
		if err := r.Validate(); err != nil {
			return err
		}
		if seen[r] {
			return fmt.Errorf("duplicate route %q", r.String())
		}
		seen[r] = true
	}
	return nil
}
