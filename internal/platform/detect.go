package platform

import (
	"os"
	"path/filepath"
)

// LayoutStatus tells whether a directory holds a platform layout.
type LayoutStatus string

const (
	// StatusFound indicates at least one anchor of the layout exists.
	StatusFound LayoutStatus = "found"

	// StatusNotFound indicates no anchor exists.
	StatusNotFound LayoutStatus = "not_found"

	// StatusRejected indicates anchors exist but the hooks refuse the
	// directory, e.g. a GOG directory holding the Steam file layout.
	StatusRejected LayoutStatus = "rejected"
)

// DetectionResult describes one kind checked against a directory.
type DetectionResult struct {
	// Kind is the platform checked.
	Kind Kind

	// Root is the directory checked.
	Root string

	// Matches lists the files that matched an anchor, relative to Root.
	Matches []string

	// Status is the outcome.
	Status LayoutStatus
}

// DetectLayout checks root against the anchors of hooks.
func DetectLayout(root string, hooks Hooks) *DetectionResult {
	result := &DetectionResult{
		Kind:   hooks.Kind(),
		Root:   root,
		Status: StatusNotFound,
	}
	if !dirExists(root) {
		return result
	}

	for _, pattern := range hooks.Anchors() {
		matches, err := filepath.Glob(filepath.Join(root, pattern))
		if err != nil {
			continue
		}
		for _, m := range matches {
			if rel, err := filepath.Rel(root, m); err == nil {
				result.Matches = append(result.Matches, filepath.ToSlash(rel))
			}
		}
	}
	if len(result.Matches) == 0 {
		return result
	}

	result.Status = StatusFound
	if f, ok := hooks.(RootFilter); ok && !f.AcceptsRoot(root) {
		result.Status = StatusRejected
	}
	return result
}

// Detect checks root against every registered kind in preference order.
func (r *Registry) Detect(root string, preferred Kind) []*DetectionResult {
	kinds := r.Ordered(preferred)
	results := make([]*DetectionResult, 0, len(kinds))
	for _, k := range kinds {
		f, ok := r.Get(k)
		if !ok {
			continue
		}
		results = append(results, DetectLayout(root, f(root)))
	}
	return results
}

// dirExists returns true if the path exists and is a directory.
func dirExists(path string) bool {
	if path == "" {
		return false
	}

	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.IsDir()
}
