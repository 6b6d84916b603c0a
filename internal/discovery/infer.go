package discovery

import "strings"

// serviceKeywords maps substrings of service names or images onto the port
// range names seeded in the registry
var serviceKeywords = []struct {
	keywords []string
	rangeKey string
}{
	{[]string{"postgres", "postgresql", "psql", "pg"}, "postgres"},
	{[]string{"mysql", "mariadb"}, "mysql"},
	{[]string{"redis"}, "redis"},
	{[]string{"mongodb", "mongo"}, "mongodb"},
	{[]string{"elasticsearch", "elastic"}, "elasticsearch"},
	{[]string{"meilisearch", "meili"}, "meilisearch"},
	{[]string{"rabbitmq", "rabbit"}, "rabbitmq"},
	{[]string{"kafka"}, "kafka"},
}

// InferServiceType maps a service name (and optionally its image) onto a
// configured port range name. Unrecognized services fall into "default".
func InferServiceType(serviceName, image string) string {
	name := strings.ToLower(serviceName)
	img := strings.ToLower(image)

	for _, mapping := range serviceKeywords {
		for _, kw := range mapping.keywords {
			if strings.Contains(name, kw) || strings.Contains(img, kw) {
				return mapping.rangeKey
			}
		}
	}

	return "default"
}
