package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferServiceType(t *testing.T) {
	tests := []struct {
		name  string
		image string
		want  string
	}{
		{"postgres", "", "postgres"},
		{"pg-main", "", "postgres"},
		{"db", "postgres:16", "postgres"},
		{"mariadb", "", "mysql"},
		{"cache", "redis:7-alpine", "redis"},
		{"mongo", "", "mongodb"},
		{"search", "elasticsearch:8", "elasticsearch"},
		{"meili", "", "meilisearch"},
		{"queue", "rabbitmq:3-management", "rabbitmq"},
		{"kafka", "", "kafka"},
		{"web", "node:20", "default"},
		{"api", "", "default"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, InferServiceType(tt.name, tt.image),
			"service %q image %q", tt.name, tt.image)
	}
}
