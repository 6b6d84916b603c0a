package discovery

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
)

// devcontainerConfig covers the port-related subset of devcontainer.json.
// forwardPorts entries are numbers or "service:port" strings, so the field
// decodes into bare interface values.
type devcontainerConfig struct {
	Service      string        `json:"service"`
	ForwardPorts []interface{} `json:"forwardPorts"`
}

// discoverDevcontainer extracts forwarded ports from a project's
// devcontainer.json. The file format is JSONC, so comments are stripped
// before parsing. Any failure yields no services; devcontainer discovery is
// best-effort on top of compose discovery.
func discoverDevcontainer(dir string) []Service {
	candidates := []string{
		filepath.Join(dir, ".devcontainer", "devcontainer.json"),
		filepath.Join(dir, ".devcontainer.json"),
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var cfg devcontainerConfig
		if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
			continue
		}

		return forwardedServices(&cfg, path)
	}

	return nil
}

func forwardedServices(cfg *devcontainerConfig, source string) []Service {
	defaultName := cfg.Service
	if defaultName == "" {
		defaultName = "app"
	}

	var services []Service
	for _, fp := range cfg.ForwardPorts {
		switch v := fp.(type) {
		case float64:
			// JSON numbers decode to float64 behind interface values
			services = append(services, Service{
				Name:          defaultName,
				ContainerPort: int(v),
				EnvVar:        DefaultEnvVar(defaultName),
				Source:        source,
			})
		case string:
			// "service:port"
			parts := strings.SplitN(v, ":", 2)
			if len(parts) != 2 {
				continue
			}
			port, err := strconv.Atoi(parts[1])
			if err != nil {
				continue
			}
			services = append(services, Service{
				Name:          parts[0],
				ContainerPort: port,
				EnvVar:        DefaultEnvVar(parts[0]),
				Source:        source,
			})
		}
	}

	return services
}
