// Package tasks replaces the external beat scheduler with in-process
// periodic jobs whose enable/disable state, weather snapshots, and message
// log live in Redis.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Task names controllable through the HTTP surface.
const (
	TaskFetchWeather = "fetch_weather"
	TaskSaveMessage  = "save_message"
)

const (
	taskStateKeyPrefix = "task_state:"
	weatherKeyPrefix   = "weather:"
	messageListKey     = "log_messages"
)

// stateCommands is the slice of the Redis API the store needs.
type stateCommands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LRange(ctx context.Context, key string, start int64, stop int64) *redis.StringSliceCmd
}

// StateStore persists task toggles and task output in Redis.
type StateStore struct {
	commands stateCommands
}

// NewStateStore constructs the store on an established Redis client.
func NewStateStore(client *redis.Client) *StateStore {
	return newStateStore(client)
}

func newStateStore(commands stateCommands) *StateStore {
	return &StateStore{commands: commands}
}

// SetTaskEnabled flips one task's toggle.
func (store *StateStore) SetTaskEnabled(ctx context.Context, taskName string, enabled bool) error {
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	if setErr := store.commands.Set(ctx, taskStateKeyPrefix+taskName, state, 0).Err(); setErr != nil {
		return fmt.Errorf("tasks.set_state %s: %w", taskName, setErr)
	}
	return nil
}

// TaskEnabled reports the toggle, defaulting to enabled when unset.
func (store *StateStore) TaskEnabled(ctx context.Context, taskName string) (bool, error) {
	state, getErr := store.commands.Get(ctx, taskStateKeyPrefix+taskName).Result()
	if getErr != nil {
		if errors.Is(getErr, redis.Nil) {
			return true, nil
		}
		return false, fmt.Errorf("tasks.get_state %s: %w", taskName, getErr)
	}
	return state == "enabled", nil
}

// SaveWeather stores the latest snapshot for a location.
func (store *StateStore) SaveWeather(ctx context.Context, location string, snapshot json.RawMessage) error {
	if setErr := store.commands.Set(ctx, weatherKeyPrefix+location, string(snapshot), 0).Err(); setErr != nil {
		return fmt.Errorf("tasks.save_weather %s: %w", location, setErr)
	}
	return nil
}

// Weather returns the stored snapshot, or (nil, nil) when none exists.
func (store *StateStore) Weather(ctx context.Context, location string) (json.RawMessage, error) {
	snapshot, getErr := store.commands.Get(ctx, weatherKeyPrefix+location).Result()
	if getErr != nil {
		if errors.Is(getErr, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("tasks.get_weather %s: %w", location, getErr)
	}
	return json.RawMessage(snapshot), nil
}

// AppendMessage adds one entry to the message log.
func (store *StateStore) AppendMessage(ctx context.Context, message string) error {
	if pushErr := store.commands.RPush(ctx, messageListKey, message).Err(); pushErr != nil {
		return fmt.Errorf("tasks.append_message: %w", pushErr)
	}
	return nil
}

// Messages returns the full message log.
func (store *StateStore) Messages(ctx context.Context) ([]string, error) {
	messages, rangeErr := store.commands.LRange(ctx, messageListKey, 0, -1).Result()
	if rangeErr != nil {
		return nil, fmt.Errorf("tasks.list_messages: %w", rangeErr)
	}
	return messages, nil
}
