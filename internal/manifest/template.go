package manifest

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	shipcaterrors "github.com/shipcat/shipcat/internal/errors"
)

// SecretSentinel is prepended by the `| as_secret` template filter; the
// partitioner strips it to move a rendered value from plain env into the
// secrets map. It is chosen, per spec §4.1, to be a string that cannot
// occur naturally in an env value.
const SecretSentinel = "SHIPCAT_SECRET::"

// InVaultMarker is the literal raw value that, pre-render, marks an env
// or secretFiles entry as requiring a live secret-store read.
const InVaultMarker = "IN_VAULT"

// TemplateContext is the variable namespace available to §4.1's Jinja-
// family templates: {{ service }}, {{ region }}, {{ environment }},
// {{ env.* }}, {{ base_urls.* }}, {{ kafka.* }}, {{ kong.* }},
// {{ namespace }}, {{ cluster }}.
type TemplateContext struct {
	Service     string
	Region      string
	Environment string
	Namespace   string
	Cluster     string
	Env         map[string]string
	BaseURLs    map[string]string
	Kafka       *Kafka
	Kong        *Kong
}

var tplVarRe = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_\.]*)((?:\s*\|\s*[a-zA-Z_][a-zA-Z0-9_]*)*)\s*\}\}`)

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// translatePath rewrites a bare Jinja-style variable path (e.g.
// "env.CORE_URL", "kong.host") into the equivalent Go text/template
// expression operating on *TemplateContext.
func translatePath(path string) string {
	parts := strings.SplitN(path, ".", 2)
	root := parts[0]
	switch root {
	case "service":
		return ".Service"
	case "region":
		return ".Region"
	case "environment":
		return ".Environment"
	case "namespace":
		return ".Namespace"
	case "cluster":
		return ".Cluster"
	case "env":
		if len(parts) == 2 {
			return fmt.Sprintf(`index .Env "%s"`, parts[1])
		}
	case "base_urls":
		if len(parts) == 2 {
			return fmt.Sprintf(`index .BaseURLs "%s"`, parts[1])
		}
	case "kafka":
		if len(parts) == 2 {
			return ".Kafka." + capitalize(parts[1])
		}
	case "kong":
		if len(parts) == 2 {
			return ".Kong." + capitalize(parts[1])
		}
	}
	return "." + capitalize(root)
}

// preprocess rewrites the Jinja-style bare-variable syntax into Go
// text/template syntax, preserving any trailing `| filter` pipeline.
func preprocess(raw string) string {
	return tplVarRe.ReplaceAllStringFunc(raw, func(m string) string {
		sub := tplVarRe.FindStringSubmatch(m)
		path, filters := sub[1], sub[2]
		return "{{ " + translatePath(path) + filters + " }}"
	})
}

var tplFuncs = template.FuncMap{
	"as_secret": func(v string) string { return SecretSentinel + v },
}

// RenderTemplate renders a single template string against ctx, applies
// the as_secret sentinel convention, and right-trims every output line
// (spec §4.1: "Rendered lines are right-trimmed").
func RenderTemplate(name, raw string, ctx *TemplateContext) (string, error) {
	tpl, err := template.New(name).Funcs(tplFuncs).Parse(preprocess(raw))
	if err != nil {
		return "", shipcaterrors.New(shipcaterrors.InvalidTemplate, name, "parse error", err)
	}
	var b strings.Builder
	if err := tpl.Execute(&b, ctx); err != nil {
		return "", shipcaterrors.New(shipcaterrors.InvalidTemplate, name, "render error", err)
	}
	return rightTrimLines(b.String()), nil
}

func rightTrimLines(s string) string {
	var out strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(s))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	first := true
	for scanner.Scan() {
		if !first {
			out.WriteByte('\n')
		}
		first = false
		out.WriteString(strings.TrimRight(scanner.Text(), " \t"))
	}
	return out.String()
}

// PartitionEnv splits a rendered env map: plain holds every value that is
// neither sentinel-prefixed nor IN_VAULT, and vaultKeys lists the keys whose
// value is the literal IN_VAULT marker, for the caller to read from the
// secret store. Values carrying the as_secret sentinel appear in neither.
func PartitionEnv(rendered map[string]string) (plain map[string]string, vaultKeys []string) {
	plain = map[string]string{}
	for k, v := range rendered {
		if strings.HasPrefix(v, SecretSentinel) {
			continue // as_secret values never land in plain or get looked up; see Upgrade
		}
		if v == InVaultMarker {
			vaultKeys = append(vaultKeys, k)
			continue
		}
		plain[k] = v
	}
	return plain, vaultKeys
}
