// Package discovery finds services needing port allocation in a project:
// docker-compose files (short and long port syntax) and devcontainer.json
// forwardPorts.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// composeFileNames are the standard compose file names, in search order
var composeFileNames = []string{
	"docker-compose.yml",
	"docker-compose.yaml",
	"compose.yml",
	"compose.yaml",
}

// Service is a service discovered from a compose or devcontainer file that
// needs a dynamic port allocation
type Service struct {
	Name          string // service name from the definition file
	ContainerPort int    // internal container port
	EnvVar        string // environment variable name for the host port
	Source        string // file the service was discovered from
}

// composeFile mirrors the subset of the compose format we care about
type composeFile struct {
	Services map[string]composeService `yaml:"services"`
}

type composeService struct {
	Image string      `yaml:"image"`
	Ports []yaml.Node `yaml:"ports"`
}

// composeLongPort is the long port syntax: {published: ..., target: ...}
type composeLongPort struct {
	Published string `yaml:"published"`
	Target    int    `yaml:"target"`
}

var (
	// "${PG_PORT}:5432" or "$PG_PORT:5432", optional /protocol suffix
	envVarPort = regexp.MustCompile(`^\$\{?(\w+)\}?:(\d+)(?:/\w+)?$`)
	// "5432" or "5432/tcp"
	barePort = regexp.MustCompile(`^(\d+)(?:/\w+)?$`)
)

// DiscoverServices finds services requiring port allocation under dir.
//
// With composeFile set, only that file is parsed. Otherwise the standard
// compose file names are searched, plus devcontainer.json locations.
// Explicit host-port mappings ("8080:80") are skipped; environment-variable
// mappings and bare container ports need allocation.
func DiscoverServices(dir, composeFile string) ([]Service, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}

	if composeFile != "" {
		path := composeFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		if _, err := os.Stat(path); err != nil {
			return nil, nil
		}
		return parseComposeFile(path)
	}

	var services []Service
	for _, name := range composeFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		found, err := parseComposeFile(path)
		if err != nil {
			continue
		}
		services = append(services, found...)
	}

	services = append(services, discoverDevcontainer(dir)...)

	return services, nil
}

func parseComposeFile(path string) ([]Service, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var cf composeFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	var services []Service
	for name, svc := range cf.Services {
		for _, portDef := range svc.Ports {
			parsed := parsePortDefinition(&portDef, name)
			if parsed != nil {
				parsed.Source = path
				services = append(services, *parsed)
			}
		}
	}

	return services, nil
}

// parsePortDefinition handles one entry of a compose ports list. Returns
// nil for entries with an explicit host port, which need no allocation.
func parsePortDefinition(node *yaml.Node, serviceName string) *Service {
	if node.Kind == yaml.MappingNode {
		// Long format: {published: "${VAR}", target: 5432}
		var long composeLongPort
		if err := node.Decode(&long); err != nil {
			return nil
		}
		if strings.HasPrefix(long.Published, "$") {
			envVar := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(long.Published, "$"), "{"), "}")
			return &Service{
				Name:          serviceName,
				ContainerPort: long.Target,
				EnvVar:        envVar,
			}
		}
		return nil
	}

	if node.Kind != yaml.ScalarNode {
		return nil
	}
	// Scalar entries may be quoted strings or bare ints; the raw node value
	// covers both
	portStr := node.Value

	if m := envVarPort.FindStringSubmatch(portStr); m != nil {
		port, _ := strconv.Atoi(m[2])
		return &Service{
			Name:          serviceName,
			ContainerPort: port,
			EnvVar:        m[1],
		}
	}

	if m := barePort.FindStringSubmatch(portStr); m != nil {
		port, _ := strconv.Atoi(m[1])
		return &Service{
			Name:          serviceName,
			ContainerPort: port,
			EnvVar:        DefaultEnvVar(serviceName),
		}
	}

	// Explicit mapping like "8080:80", no allocation needed
	return nil
}

// DefaultEnvVar returns the conventional environment variable name for a
// service's host port, e.g. "postgres" -> "POSTGRES_PORT"
func DefaultEnvVar(serviceName string) string {
	return strings.ToUpper(strings.ReplaceAll(serviceName, "-", "_")) + "_PORT"
}
