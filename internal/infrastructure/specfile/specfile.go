package specfile

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/deploykit/dpm-cli/internal/domain"
	"gopkg.in/yaml.v3"
)

// Load reads a project specfile. Unknown fields are rejected here;
// everything deeper is the server-side validator's business.
func Load(path string) (domain.ProjectSpec, error) {
	var spec domain.ProjectSpec

	b, err := os.ReadFile(path)
	if err != nil {
		return spec, fmt.Errorf("specfile not found: %s", path)
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return spec, fmt.Errorf("invalid specfile %s: %w", path, err)
	}

	if spec.Name == "" {
		return spec, fmt.Errorf("specfile %s: project name is required", path)
	}
	return spec, nil
}

// MergeSecrets overlays command-line secret values onto the spec. Each
// overlay has the form name:key1=value1,key2=value2 and must target a
// secret the spec already declares.
func MergeSecrets(spec *domain.ProjectSpec, overlays []string) error {
	for _, overlay := range overlays {
		name, data, err := parseOverlay(overlay)
		if err != nil {
			return err
		}

		if spec.Resources == nil {
			return fmt.Errorf("secret '%s' not found in project spec", name)
		}
		merged := false
		for i := range spec.Resources.Secrets {
			if spec.Resources.Secrets[i].Name != name {
				continue
			}
			if spec.Resources.Secrets[i].Data == nil {
				spec.Resources.Secrets[i].Data = make(map[string]string, len(data))
			}
			for k, v := range data {
				spec.Resources.Secrets[i].Data[k] = v
			}
			merged = true
		}
		if !merged {
			return fmt.Errorf("secret '%s' not found in project spec", name)
		}
	}
	return nil
}

func parseOverlay(s string) (string, map[string]string, error) {
	name, rest, ok := strings.Cut(s, ":")
	if !ok || name == "" {
		return "", nil, fmt.Errorf("invalid secret %q, expected name:key=value[,key=value]", s)
	}

	data := make(map[string]string)
	for _, pair := range strings.Split(rest, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return "", nil, fmt.Errorf("invalid secret %q, expected name:key=value[,key=value]", s)
		}
		data[k] = v
	}
	return name, data, nil
}
