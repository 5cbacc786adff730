package trackerstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/AntonStoeckl/dialogue-trackerstore-go/config"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/trackerstore/memoryengine"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/trackerstore/mongoengine"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/trackerstore/redisengine"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/trackerstore/sqlengine"
)

// Built-in backend type names as used in the tracker_store.type configuration key.
const (
	TypeInMemory = "in_memory"
	TypeRedis    = "redis"
	TypeMongo    = "mongod"
	TypeSQL      = "sql"
)

const logMsgUnknownBackendType = "tracker store type could not be resolved, falling back to the in-memory tracker store"

// BackendFactory connects a backend for a store configuration.
// The logger may be nil.
type BackendFactory func(ctx context.Context, cfg config.StoreConfig, logger Logger) (Backend, error)

var builtinBackends = map[string]BackendFactory{
	"":           newMemoryBackend,
	TypeInMemory: newMemoryBackend,
	"memory":     newMemoryBackend,
	TypeRedis:    newRedisBackend,
	TypeMongo:    newMongoBackend,
	"mongo":      newMongoBackend,
	"mongodb":    newMongoBackend,
	TypeSQL:      newSQLBackend,
}

var (
	customBackendsMu sync.RWMutex
	customBackends   = make(map[string]BackendFactory)
)

// RegisterBackend makes a custom backend available under the type name.
// Built-in type names can not be overridden.
func RegisterBackend(typeName string, factory BackendFactory) error {
	if typeName == "" {
		return ErrEmptyBackendType
	}

	if factory == nil {
		return ErrNilBackendFactory
	}

	customBackendsMu.Lock()
	defer customBackendsMu.Unlock()

	if _, ok := builtinBackends[strings.ToLower(typeName)]; ok {
		return errors.Join(ErrBackendTypeAlreadyRegistered, fmt.Errorf("type %q is built in", typeName))
	}

	if _, ok := customBackends[typeName]; ok {
		return errors.Join(ErrBackendTypeAlreadyRegistered, fmt.Errorf("type %q", typeName))
	}

	customBackends[typeName] = factory

	return nil
}

// RegisteredBackendTypes returns the sorted names of all custom backend types.
func RegisteredBackendTypes() []string {
	customBackendsMu.RLock()
	defer customBackendsMu.RUnlock()

	names := make([]string, 0, len(customBackends))
	for name := range customBackends {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// resolveBackendFactory looks the type name up in the built-in backends first, then in the
// registered ones, and falls back to the in-memory backend.
func (s *Store) resolveBackendFactory(typeName string) BackendFactory {
	if factory, ok := builtinBackends[strings.ToLower(typeName)]; ok {
		return factory
	}

	customBackendsMu.RLock()
	factory, ok := customBackends[typeName]
	customBackendsMu.RUnlock()

	if ok {
		return factory
	}

	s.logWarn(logMsgUnknownBackendType, logAttrBackendType, typeName)

	return newMemoryBackend
}

func newMemoryBackend(_ context.Context, cfg config.StoreConfig, logger Logger) (Backend, error) {
	return memoryengine.New(
		memoryengine.WithLogger(logger),
		memoryengine.WithDefaultExpiration(cfg.RecordExpiration()),
	)
}

func newRedisBackend(ctx context.Context, cfg config.StoreConfig, logger Logger) (Backend, error) {
	return redisengine.NewFromConfig(ctx, cfg, redisengine.WithLogger(logger))
}

func newMongoBackend(ctx context.Context, cfg config.StoreConfig, logger Logger) (Backend, error) {
	return mongoengine.NewFromConfig(ctx, cfg, mongoengine.WithLogger(logger))
}

func newSQLBackend(ctx context.Context, cfg config.StoreConfig, logger Logger) (Backend, error) {
	return sqlengine.NewFromConfig(ctx, cfg, sqlengine.WithLogger(logger))
}
