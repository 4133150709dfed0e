package ai

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrModelNotFound      = errors.New("model not found")
	ErrInvalidIdentifier  = errors.New("invalid model identifier format, expected 'provider/modelName'")
	ErrModelAlreadyExists = errors.New("model already registered")
	ErrEmptyProviderName  = errors.New("provider name cannot be empty")
	ErrEmptyModelName     = errors.New("model name cannot be empty")
)

type ModelFactoryFunc func(modelName, apiKey string, baseURL ...string) *Model

type ModelInfo struct {
	Provider   string
	Model      string
	Identifier string // human readable display name
	Family     string
	BaseURL    string
	APIKeyName string // environment variable consulted when no key is given
	NewModel   ModelFactoryFunc
}

type modelRegistry struct {
	mu     sync.RWMutex
	models map[string]ModelInfo
}

var defaultRegistry *modelRegistry

func init() {
	defaultRegistry = &modelRegistry{
		models: make(map[string]ModelInfo),
	}
}

func RegisterModel(info ModelInfo) error {
	if info.Provider == "" {
		return ErrEmptyProviderName
	}
	if info.Model == "" {
		return ErrEmptyModelName
	}

	key := fmt.Sprintf("%s/%s", info.Provider, info.Model)

	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()

	if _, exists := defaultRegistry.models[key]; exists {
		return fmt.Errorf("%w: %s", ErrModelAlreadyExists, key)
	}

	defaultRegistry.models[key] = info
	return nil
}

// New resolves a "provider/modelName" identifier against the registry and
// builds the model with the given API key. An empty key defers to the
// provider's environment lookup.
func New(identifier, apiKey string) (*Model, error) {
	if identifier == "" {
		return nil, ErrInvalidIdentifier
	}

	parts := strings.SplitN(identifier, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, ErrInvalidIdentifier
	}

	defaultRegistry.mu.RLock()
	info, exists := defaultRegistry.models[identifier]
	defaultRegistry.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, identifier)
	}

	return info.NewModel(parts[1], apiKey, info.BaseURL), nil
}

func Models() []ModelInfo {
	defaultRegistry.mu.RLock()
	defer defaultRegistry.mu.RUnlock()

	result := make([]ModelInfo, 0, len(defaultRegistry.models))
	for _, info := range defaultRegistry.models {
		result = append(result, info)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Provider != result[j].Provider {
			return result[i].Provider < result[j].Provider
		}
		return result[i].Model < result[j].Model
	})

	return result
}
