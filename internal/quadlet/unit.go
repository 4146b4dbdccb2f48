package quadlet

import (
	"fmt"
	"path"
	"strings"

	"gopkg.in/ini.v1"
)

// resourceKeys lists, per type, the directives in the X-<Type> section that
// reference files next to the quadlet.
var resourceKeys = map[Type][]string{
	TypeContainer: {"EnvironmentFile", "SeccompProfile", "ContainersConfModule"},
	TypeKube:      {"Yaml", "ConfigMap", "ContainersConfModule"},
	TypeBuild:     {"AuthFile", "IgnoreFile", "ContainersConfModule"},
	TypeImage:     {"AuthFile", "ContainersConfModule"},
	TypePod:       {"ContainersConfModule"},
	TypeVolume:    {"ContainersConfModule"},
	TypeNetwork:   {"ContainersConfModule"},
}

// loadUnit reads systemd unit text. Repeated keys are kept as shadows.
func loadUnit(content string) (*ini.File, error) {
	return ini.LoadSources(ini.LoadOptions{
		AllowShadows:               true,
		AllowDuplicateShadowValues: true,
		KeyValueDelimiters:         "=",
		IgnoreInlineComment:        true,
		PreserveSurroundedQuote:    true,
		SkipUnrecognizableLines:    true,
	}, []byte(content))
}

// values returns every non-empty value of key in order, duplicates included.
func values(section *ini.Section, key string) []string {
	if section == nil || !section.HasKey(key) {
		return []string{}
	}
	all := section.Key(key).ValueWithShadows()
	out := make([]string, 0, len(all))
	for _, v := range all {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func section(f *ini.File, name string) *ini.Section {
	s, err := f.GetSection(name)
	if err != nil {
		return nil
	}
	return s
}

// ResolvePath makes value absolute relative to the directory of sourcePath.
// Absolute and ~ prefixed values are returned unchanged.
func ResolvePath(sourcePath, value string) string {
	if path.IsAbs(value) || strings.HasPrefix(value, "~") {
		return value
	}
	return path.Join(path.Dir(sourcePath), value)
}

// ParseUnit turns one generated unit into a Quadlet.
func ParseUnit(service, content string) (Quadlet, error) {
	f, err := loadUnit(content)
	if err != nil {
		return Quadlet{}, newParseError(service, "invalid unit syntax", err)
	}

	unit := section(f, "Unit")
	if unit == nil || !unit.HasKey("SourcePath") {
		return Quadlet{}, newParseError(service, "no source path", ErrMissingSourcePath)
	}
	sourcePath := strings.TrimSpace(unit.Key("SourcePath").String())
	if sourcePath == "" {
		return Quadlet{}, newParseError(service, "no source path", ErrMissingSourcePath)
	}

	typ, err := ParseExtension(sourcePath)
	if err != nil {
		return Quadlet{}, err
	}

	st, err := ParseServiceType(service, "service")
	if err != nil {
		return Quadlet{}, err
	}

	q := Quadlet{
		ID:       newID(),
		Path:     sourcePath,
		Type:     typ,
		State:    StateUnknown,
		Requires: values(unit, "Requires"),
		Files:    resourceFiles(f, typ, sourcePath),
		Service:  service,
		Content:  content,
		Kind:     st.Kind,
		Template: st.Template,
		Argument: st.Argument,
	}

	if st.Kind == KindTemplate {
		if instances := values(section(f, "Install"), "DefaultInstance"); len(instances) > 0 {
			q.DefaultInstance = instances[len(instances)-1]
			q.Service = fmt.Sprintf("%s@%s.service", st.Template, q.DefaultInstance)
		}
	}

	return q, nil
}

func resourceFiles(f *ini.File, typ Type, sourcePath string) []File {
	sec := section(f, typ.Section())
	files := []File{}
	if sec == nil {
		return files
	}
	for _, key := range resourceKeys[typ] {
		for _, v := range values(sec, key) {
			files = append(files, File{Name: path.Base(v), Path: ResolvePath(sourcePath, v)})
		}
	}
	return files
}

// KubeYAMLPath re-reads the stored unit content of a kube quadlet and returns
// its Yaml= reference resolved against the quadlet's directory.
func KubeYAMLPath(q Quadlet) (string, error) {
	if q.Type != TypeKube {
		return "", newParseError(q.Path, "not a kube quadlet", nil)
	}
	f, err := loadUnit(q.Content)
	if err != nil {
		return "", newParseError(q.Path, "invalid unit syntax", err)
	}
	yamls := values(section(f, TypeKube.Section()), "Yaml")
	if len(yamls) == 0 {
		return "", newParseError(q.Path, "no Yaml= directive", nil)
	}
	return ResolvePath(q.Path, yamls[0]), nil
}
