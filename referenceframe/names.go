package referenceframe

import "strings"

// Global is the name of the outermost, fixed frame every published state is expressed in.
const Global = "earth"

// DefaultBaseFrame is the body frame suffix used when none is configured.
const DefaultBaseFrame = "base_link"

// FrameNames holds the four frames of the chain global -> map -> odom -> body.
type FrameNames struct {
	Global string
	Map    string
	Odom   string
	Body   string
}

// GenerateFrameName namespaces frame under namespace, e.g. ("/drone0", "odom") -> "drone0/odom".
// A frame starting with "/" is taken as already absolute and only loses the slash.
func GenerateFrameName(namespace, frame string) string {
	if strings.HasPrefix(frame, "/") {
		return strings.TrimPrefix(frame, "/")
	}
	ns := strings.Trim(namespace, "/")
	if ns == "" {
		return frame
	}
	return ns + "/" + frame
}

// NewFrameNames builds the chain names for an agent namespace. An empty baseFrame makes the body frame
// the bare namespace; usedNamespace reports that this fallback was taken so callers can warn.
func NewFrameNames(namespace, baseFrame string) (names FrameNames, usedNamespace bool) {
	names = FrameNames{
		Global: Global,
		Map:    GenerateFrameName(namespace, "map"),
		Odom:   GenerateFrameName(namespace, "odom"),
	}
	if baseFrame == "" {
		names.Body = strings.Trim(namespace, "/")
		return names, true
	}
	names.Body = GenerateFrameName(namespace, baseFrame)
	return names, false
}

// Chain returns the names ordered from the global frame down to the body.
func (fn FrameNames) Chain() []string {
	return []string{fn.Global, fn.Map, fn.Odom, fn.Body}
}
