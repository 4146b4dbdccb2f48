package quadlet

import (
	"path"
	"regexp"
	"strings"

	"github.com/trly/quadlet-sync/internal/log"
)

// DryRunOutput is what one `quadlet -dryrun` invocation printed.
// The generator may exit non-zero and still print valid units.
type DryRunOutput struct {
	Stdout string
	Stderr string
}

var (
	blockHeader = regexp.MustCompile(`(?m)^---([^\n]+?)---[ \t]*\r?$`)
	loadingParen = regexp.MustCompile(`Loading source unit file \((/[^)]+)\)`)
	loadingBare  = regexp.MustCompile(`Loading source unit file (/.+)$`)
)

// ParseDryRun converts generator output into quadlets. Units printed on
// stdout are authoritative; source files only mentioned on stderr become
// entries in the error state. Each call works on its own result set.
func ParseDryRun(out DryRunOutput, logger log.Logger) []Quadlet {
	if logger == nil {
		logger = log.NewNop()
	}

	result := parseBlocks(out.Stdout, logger)

	seen := make(map[string]struct{}, len(result))
	for _, q := range result {
		seen[q.Path] = struct{}{}
	}

	for _, p := range LoadedSourcePaths(out.Stderr) {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}

		q, err := degraded(p)
		if err != nil {
			logger.Warn("Skipping unrecognised source file", "path", p, "error", err)
			continue
		}
		logger.Debug("Unit failed to generate", "path", p)
		result = append(result, q)
	}

	return result
}

func parseBlocks(stdout string, logger log.Logger) []Quadlet {
	locs := blockHeader.FindAllStringSubmatchIndex(stdout, -1)
	result := make([]Quadlet, 0, len(locs))

	for i, loc := range locs {
		service := strings.TrimSpace(stdout[loc[2]:loc[3]])
		end := len(stdout)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := strings.Trim(stdout[loc[1]:end], "\r\n")

		q, err := ParseUnit(service, body)
		if err != nil {
			logger.Warn("Failed to parse generated unit", "service", service, "error", err)
			continue
		}
		result = append(result, q)
	}
	return result
}

// LoadedSourcePaths lists, in order and without duplicates, every source file
// the generator reported loading on stderr.
func LoadedSourcePaths(stderr string) []string {
	var paths []string
	seen := map[string]struct{}{}
	for _, line := range strings.Split(stderr, "\n") {
		p := loadedPath(strings.TrimRight(line, "\r"))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}
	return paths
}

// loadedPath extracts the source path of one stderr line. Paths may contain
// spaces, so the bare form takes the rest of the line.
func loadedPath(line string) string {
	if m := loadingParen.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	if m := loadingBare.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// degraded builds the entry for a source file the generator could not turn into a unit.
func degraded(p string) (Quadlet, error) {
	typ, err := ParseExtension(p)
	if err != nil {
		return Quadlet{}, err
	}

	q := Quadlet{
		ID:       newID(),
		Path:     p,
		Type:     typ,
		State:    StateError,
		Requires: []string{},
		Files:    []File{},
		Kind:     KindSimple,
	}

	stem := strings.TrimSuffix(path.Base(p), "."+string(typ))
	if tmpl, ok := strings.CutSuffix(stem, "@"); ok {
		q.Kind = KindTemplate
		q.Template = tmpl
	}
	return q, nil
}
