// Package settings registers dotenv configuration as containr bindings.
//
// Every variable is bound as a singleton string under Key(name), and the
// whole set as a map[string]string under MapKey:
//
//	services.Apply(settings.Module("settings", ".env", ".env.local"))
//
//	port := settings.Lookup(container, "APP_PORT", "8000")
package settings

import (
	"maps"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/junioryono/containr"
)

// MapKey is bound to every loaded variable as a map[string]string.
const MapKey = "settings"

// Key returns the key a variable is bound under.
func Key(name string) string {
	return MapKey + ":" + name
}

// Module reads files with godotenv when applied. Later files override earlier
// ones. A read failure is bound to MapKey, so resolving it reports the error.
func Module(name string, files ...string) containr.Module {
	return containr.NewModule(name, containr.RegistryFunc(func(services *containr.ServiceCollection) {
		values, err := godotenv.Read(files...)
		if err != nil {
			services.Factory(MapKey, containr.Factory(func(containr.Container) (any, error) {
				return nil, err
			}), containr.Singleton)
			return
		}

		register(services, values)
	}))
}

// FromString parses dotenv formatted content.
func FromString(name, content string) containr.Module {
	return containr.NewModule(name, containr.RegistryFunc(func(services *containr.ServiceCollection) {
		values, err := godotenv.Unmarshal(content)
		if err != nil {
			services.Factory(MapKey, containr.Factory(func(containr.Container) (any, error) {
				return nil, err
			}), containr.Singleton)
			return
		}

		register(services, values)
	}))
}

// FromMap binds values directly. It is mostly useful for overrides in tests.
func FromMap(name string, values map[string]string) containr.Module {
	return containr.NewModule(name, containr.RegistryFunc(func(services *containr.ServiceCollection) {
		register(services, maps.Clone(values))
	}))
}

// register binds every variable and merges them into any map already bound
// under MapKey.
func register(services *containr.ServiceCollection, values map[string]string) {
	merged := make(map[string]string, len(values))
	maps.Copy(merged, existing(services))
	maps.Copy(merged, values)

	for name, value := range values {
		services.Singleton(Key(name), value)
	}
	services.Singleton(MapKey, merged)
}

// existing returns the map a previous settings module bound under MapKey.
// It reads the bound dependency directly; the collection may share scopes
// with a live container, so no container is built and no scope is cached.
func existing(services *containr.ServiceCollection) map[string]string {
	scope, ok := services.Scope(MapKey)
	if !ok {
		return nil
	}

	value, err := scope.Dependency().ResolveValue(nil)
	if err != nil {
		return nil
	}

	m, _ := value.(map[string]string)
	return m
}

// Get resolves the variable name.
func Get(c containr.Container, name string) (string, error) {
	return containr.Get[string](c, Key(name))
}

// Lookup resolves the variable name, falling back to defaultVal when it is
// missing or empty.
func Lookup(c containr.Container, name, defaultVal string) string {
	v, err := Get(c, name)
	if err != nil || v == "" {
		return defaultVal
	}
	return v
}

// GetInt returns an int variable.
func GetInt(c containr.Container, name string, defaultVal int) int {
	v := Lookup(c, name, "")
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool variable.
func GetBool(c containr.Container, name string, defaultVal bool) bool {
	v := Lookup(c, name, "")
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}
