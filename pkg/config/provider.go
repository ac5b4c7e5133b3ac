package config

import (
	"os"
	"strconv"
	"strings"
)

// Provider looks up free-form boolean configuration flags, such as per-task
// enablement properties. Implementations must return the caller's default
// when the flag is absent.
type Provider interface {
	BoolValue(key string, defaultValue bool) bool
}

// EnvProvider resolves flags from the environment. A property name like
// "tasks.wait-for-stack.enabled" maps to TASKS_WAIT_FOR_STACK_ENABLED.
type EnvProvider struct{}

func NewEnvProvider() *EnvProvider {
	return &EnvProvider{}
}

func (p *EnvProvider) BoolValue(key string, defaultValue bool) bool {
	name := strings.ToUpper(key)
	name = strings.NewReplacer(".", "_", "-", "_").Replace(name)

	raw, ok := os.LookupEnv(name)
	if !ok {
		return defaultValue
	}

	value, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}

	return value
}

// StaticProvider resolves flags from a fixed map. Intended for tests and
// embedded wiring.
type StaticProvider struct {
	values map[string]bool
}

func NewStaticProvider(values map[string]bool) *StaticProvider {
	if values == nil {
		values = make(map[string]bool)
	}

	return &StaticProvider{values: values}
}

func (p *StaticProvider) BoolValue(key string, defaultValue bool) bool {
	value, ok := p.values[key]
	if !ok {
		return defaultValue
	}

	return value
}
