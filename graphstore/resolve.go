package graphstore

import (
	"path"
	"strings"
)

// candidatePaths returns the paths that raw could resolve to from a file
// at sourcePath in the given language, in preference order. Resolution is
// intentionally narrow: exact relative-path match plus a per-language
// module-to-path conversion, never a substring or fuzzy match — a
// stricter contract than the legacy tool this was distilled from used,
// chosen to eliminate substring-match false positives.
func candidatePaths(language, sourcePath, raw string) []string {
	switch language {
	case "python":
		return pythonCandidates(raw)
	case "javascript":
		return jsCandidates(sourcePath, raw)
	case "c":
		return cCandidates(sourcePath, raw)
	case "go":
		return goCandidates(raw)
	default:
		return nil
	}
}

func pythonCandidates(raw string) []string {
	rel := strings.ReplaceAll(raw, ".", "/")
	return []string{
		rel + ".py",
		path.Join(rel, "__init__.py"),
		raw, // exact repository-relative path
	}
}

var jsExts = []string{".ts", ".tsx", ".js", ".jsx"}

func jsCandidates(sourcePath, raw string) []string {
	if !strings.HasPrefix(raw, "./") && !strings.HasPrefix(raw, "../") {
		return nil // bare specifier: external package, never resolved
	}
	base := path.Join(path.Dir(sourcePath), raw)
	out := []string{base} // try the path as written before inferring an extension
	for _, ext := range jsExts {
		out = append(out, base+ext)
	}
	for _, ext := range jsExts {
		out = append(out, path.Join(base, "index"+ext))
	}
	return out
}

func cCandidates(sourcePath, raw string) []string {
	return []string{
		path.Join(path.Dir(sourcePath), raw), // quoted, relative to source
		raw,                                  // angle-bracket, relative to a search root
	}
}

func goCandidates(raw string) []string {
	// The import path is tried as-is against the file nodes; there is no
	// module-path index, so stdlib and third-party imports (and package
	// directories, which are not file nodes) are left unresolved.
	return []string{raw}
}
