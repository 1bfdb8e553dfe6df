package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"

	"github.com/tidwall/jsonc"
)

const (
	EnvRelationships = "CLOUD_RELATIONSHIPS"
	EnvRoutes        = "CLOUD_ROUTES"
	EnvVariables     = "CLOUD_VARIABLES"
	EnvEnvironment   = "CLOUD_ENVIRONMENT"

	RelationshipDatabase = "database"
	RelationshipRabbitMQ = "rabbitmq"
	RelationshipRedis    = "redis"
	RelationshipSearch   = "elasticsearch"
)

// Service is one endpoint of a platform relationship.
type Service struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Scheme   string `json:"scheme"`
	Username string `json:"username"`
	Password string `json:"password"`
	Path     string `json:"path"`
	Version  string `json:"version"`
}

// Route is a platform route keyed by its URL.
type Route struct {
	Type        string `json:"type"`
	Upstream    string `json:"upstream"`
	OriginalURL string `json:"original_url"`
	Primary     bool   `json:"primary"`
}

// Environment holds the platform facts exported as environment variables.
type Environment struct {
	Name          string
	Relationships map[string][]Service
	Routes        map[string]Route
	Variables     map[string]string
}

// LoadEnvironment decodes platform variables through getenv, typically
// os.Getenv. Relationships, routes and variables are base64 encoded JSON;
// comments and trailing commas are tolerated.
func LoadEnvironment(getenv func(string) string) (*Environment, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	env := &Environment{Name: getenv(EnvEnvironment)}

	if err := decodeVariable(getenv(EnvRelationships), &env.Relationships); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", EnvRelationships, err)
	}
	if err := decodeVariable(getenv(EnvRoutes), &env.Routes); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", EnvRoutes, err)
	}

	var variables map[string]any
	if err := decodeVariable(getenv(EnvVariables), &variables); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", EnvVariables, err)
	}
	env.Variables = make(map[string]string, len(variables))
	for k, v := range variables {
		switch val := v.(type) {
		case string:
			env.Variables[k] = val
		case float64:
			env.Variables[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			env.Variables[k] = strconv.FormatBool(val)
		default:
			return nil, fmt.Errorf("decoding %s: variable %q has unsupported type %T", EnvVariables, k, v)
		}
	}

	return env, nil
}

func decodeVariable(raw string, into any) error {
	if raw == "" {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return fmt.Errorf("base64: %w", err)
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), into); err != nil {
		return fmt.Errorf("json: %w", err)
	}
	return nil
}

// Relationship returns the first service of the named relationship.
func (e *Environment) Relationship(name string) (Service, bool) {
	services := e.Relationships[name]
	if len(services) == 0 {
		return Service{}, false
	}
	return services[0], true
}

// HasRelationship reports whether the named service is configured.
func (e *Environment) HasRelationship(name string) bool {
	_, ok := e.Relationship(name)
	return ok
}

// Variable returns a project variable or def.
func (e *Environment) Variable(name, def string) string {
	if v, ok := e.Variables[name]; ok && v != "" {
		return v
	}
	return def
}

// IsProduction reports whether this is the production environment.
func (e *Environment) IsProduction() bool {
	return e.Name == "production" || e.Name == "master"
}

// BaseURLs returns the secure and unsecure base URLs from the primary
// upstream route. ok is false when no upstream route exists.
func (e *Environment) BaseURLs() (secure, unsecure string, ok bool) {
	keys := make([]string, 0, len(e.Routes))
	for k, r := range e.Routes {
		if r.Type == "upstream" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "", "", false
	}
	slices.Sort(keys)

	chosen := keys[0]
	for _, k := range keys {
		if e.Routes[k].Primary {
			chosen = k
			break
		}
	}

	u, err := url.Parse(chosen)
	if err != nil {
		return "", "", false
	}
	u.Scheme = "https"
	secure = u.String()
	u.Scheme = "http"
	unsecure = u.String()
	return secure, unsecure, true
}
