package domain

import "strings"

// Path is a hierarchical logical name, modelled as an ordered sequence of labels,
// e.g. "/svc/default/web" becomes ["svc", "default", "web"]. Used by the connector
// factory to fold prefix-matched client configuration onto a destination name.
type Path []string

// ParsePath splits a slash-separated name into its labels. Leading/trailing slashes
// and empty labels are ignored so "/svc/web" and "svc/web/" parse identically.
func ParsePath(s string) Path {
	parts := strings.Split(s, "/")
	labels := make(Path, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			labels = append(labels, p)
		}
	}
	return labels
}

func (p Path) String() string {
	return "/" + strings.Join(p, "/")
}

// StartsWith reports whether p is a prefix of other, label-for-label.
func (p Path) StartsWith(other Path) bool {
	if len(p) > len(other) {
		return false
	}
	for i, label := range p {
		if other[i] != label {
			return false
		}
	}
	return true
}
