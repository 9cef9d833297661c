package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RegistryKey is the hash holding one field per saved playlist.
const RegistryKey = "playa:playlists"

// RegistryStore persists saved playlists in a Redis hash.
type RegistryStore struct {
	client *redis.Client
	key    string
}

func NewRegistryStore(client *redis.Client) *RegistryStore {
	return &RegistryStore{client: client, key: RegistryKey}
}

// Load reads every saved playlist. An absent hash is an empty registry.
func (s *RegistryStore) Load(ctx context.Context) (map[string][]string, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to read playlists: %w", err)
	}

	lists := make(map[string][]string, len(fields))
	for name, raw := range fields {
		var paths []string
		if err := json.Unmarshal([]byte(raw), &paths); err != nil {
			return nil, fmt.Errorf("failed to unmarshal playlist %q: %w", name, err)
		}
		lists[name] = paths
	}
	return lists, nil
}

// Save replaces the hash with lists in one transaction.
func (s *RegistryStore) Save(ctx context.Context, lists map[string][]string) error {
	values, err := encodeFields(lists)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(values) > 0 {
			pipe.HSet(ctx, s.key, values)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write playlists: %w", err)
	}
	return nil
}

func encodeFields(lists map[string][]string) (map[string]interface{}, error) {
	values := make(map[string]interface{}, len(lists))
	for name, paths := range lists {
		if paths == nil {
			paths = []string{}
		}
		data, err := json.Marshal(paths)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal playlist %q: %w", name, err)
		}
		values[name] = string(data)
	}
	return values, nil
}
