package quadlet

import (
	"path"
	"strings"
)

// ParseExtension derives the quadlet type from the extension of p.
// The match is exact; unknown or missing extensions are errors.
func ParseExtension(p string) (Type, error) {
	base := path.Base(p)
	idx := strings.LastIndex(base, ".")
	if idx < 0 {
		return "", newParseError(p, "missing extension", nil)
	}

	ext := base[idx+1:]
	for _, t := range Types {
		if string(t) == ext {
			return t, nil
		}
	}
	return "", newParseError(p, "unknown quadlet extension "+ext, nil)
}

// ServiceType is the result of classifying a unit or file name.
type ServiceType struct {
	Kind     Kind
	Template string // set for templates and template instances
	Argument string // set for template instances
}

// ParseServiceType classifies filename, which must carry the given extension:
// "foo@.ext" is a template, "foo@bar.ext" a template instance of foo, anything
// else a simple unit.
func ParseServiceType(filename, extension string) (ServiceType, error) {
	extension = strings.TrimPrefix(extension, ".")

	base := path.Base(filename)
	idx := strings.LastIndex(base, ".")
	if idx < 0 {
		return ServiceType{}, newParseError(filename, "missing extension", nil)
	}

	stem, ext := base[:idx], base[idx+1:]
	if ext != extension {
		return ServiceType{}, newParseError(filename, "expected extension "+extension+", got "+ext, nil)
	}
	if stem == "" {
		return ServiceType{}, newParseError(filename, "empty name", nil)
	}

	if strings.HasSuffix(stem, "@") {
		tmpl := strings.TrimSuffix(stem, "@")
		if tmpl == "" || strings.Contains(tmpl, "@") {
			return ServiceType{}, newParseError(filename, "ambiguous template name", nil)
		}
		return ServiceType{Kind: KindTemplate, Template: tmpl}, nil
	}

	if tmpl, arg, ok := strings.Cut(stem, "@"); ok {
		if tmpl == "" {
			return ServiceType{}, newParseError(filename, "empty template name", nil)
		}
		return ServiceType{Kind: KindTemplateInstance, Template: tmpl, Argument: arg}, nil
	}

	return ServiceType{Kind: KindSimple}, nil
}
