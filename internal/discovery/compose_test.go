package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDiscoverServicesShortSyntax(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "docker-compose.yml"), `
services:
  postgres:
    image: postgres:16
    ports:
      - "${PG_PORT}:5432"
  redis:
    image: redis:7
    ports:
      - "$REDIS_PORT:6379"
  web:
    build: .
    ports:
      - 3000
  nginx:
    image: nginx
    ports:
      - "8080:80"
`)

	services, err := DiscoverServices(dir, "")
	require.NoError(t, err)

	byName := make(map[string]Service)
	for _, svc := range services {
		byName[svc.Name] = svc
	}

	// Env-var mappings and bare ports need allocation
	require.Contains(t, byName, "postgres")
	assert.Equal(t, 5432, byName["postgres"].ContainerPort)
	assert.Equal(t, "PG_PORT", byName["postgres"].EnvVar)

	require.Contains(t, byName, "redis")
	assert.Equal(t, 6379, byName["redis"].ContainerPort)
	assert.Equal(t, "REDIS_PORT", byName["redis"].EnvVar)

	require.Contains(t, byName, "web")
	assert.Equal(t, 3000, byName["web"].ContainerPort)
	assert.Equal(t, "WEB_PORT", byName["web"].EnvVar)

	// Explicit host mappings are skipped
	assert.NotContains(t, byName, "nginx")
}

func TestDiscoverServicesLongSyntax(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "compose.yaml"), `
services:
  postgres:
    image: postgres:16
    ports:
      - published: "${PG_PORT}"
        target: 5432
  nginx:
    image: nginx
    ports:
      - published: "8080"
        target: 80
`)

	services, err := DiscoverServices(dir, "")
	require.NoError(t, err)
	require.Len(t, services, 1)

	assert.Equal(t, "postgres", services[0].Name)
	assert.Equal(t, 5432, services[0].ContainerPort)
	assert.Equal(t, "PG_PORT", services[0].EnvVar)
}

func TestDiscoverServicesProtocolSuffix(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "docker-compose.yml"), `
services:
  dns:
    image: coredns
    ports:
      - "${DNS_PORT}:53/udp"
  metrics:
    image: statsd
    ports:
      - "8125/tcp"
`)

	services, err := DiscoverServices(dir, "")
	require.NoError(t, err)
	require.Len(t, services, 2)
}

func TestDiscoverServicesExplicitFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "docker-compose.prod.yml"), `
services:
  postgres:
    image: postgres:16
    ports:
      - "${PG_PORT}:5432"
`)
	// A standard-named file that must NOT be read when -f is given
	writeFile(t, filepath.Join(dir, "docker-compose.yml"), `
services:
  redis:
    image: redis
    ports:
      - "${REDIS_PORT}:6379"
`)

	services, err := DiscoverServices(dir, "docker-compose.prod.yml")
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "postgres", services[0].Name)
}

func TestDiscoverServicesMissingFile(t *testing.T) {
	services, err := DiscoverServices(t.TempDir(), "")
	require.NoError(t, err)
	assert.Empty(t, services)

	services, err = DiscoverServices(t.TempDir(), "nope.yml")
	require.NoError(t, err)
	assert.Empty(t, services)
}

func TestDiscoverServicesSourceIsSet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docker-compose.yml")
	writeFile(t, path, `
services:
  postgres:
    image: postgres:16
    ports:
      - "${PG_PORT}:5432"
`)

	services, err := DiscoverServices(dir, "")
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, path, services[0].Source)
}

func TestDefaultEnvVar(t *testing.T) {
	assert.Equal(t, "POSTGRES_PORT", DefaultEnvVar("postgres"))
	assert.Equal(t, "MY_APP_PORT", DefaultEnvVar("my-app"))
}
