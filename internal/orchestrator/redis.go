// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisJobStore mirrors job progress into Redis so other processes can poll
// it. Records are JSON values with a TTL; an index set tracks job ids.
type RedisJobStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisJobStore creates a store using client. Keys are prefix+jobID.
func NewRedisJobStore(client *redis.Client, prefix string, ttl time.Duration) *RedisJobStore {
	if prefix == "" {
		prefix = "lexscan:job:"
	}
	return &RedisJobStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisJobStore) key(jobID string) string { return s.prefix + jobID }
func (s *RedisJobStore) indexKey() string        { return s.prefix + "index" }

// Put stores p
func (s *RedisJobStore) Put(ctx context.Context, p Progress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(p.JobID), data, s.ttl)
	pipe.SAdd(ctx, s.indexKey(), p.JobID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store progress for job %s: %w", p.JobID, err)
	}
	return nil
}

// Get returns the record for jobID
func (s *RedisJobStore) Get(ctx context.Context, jobID string) (Progress, error) {
	data, err := s.client.Get(ctx, s.key(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Progress{}, ErrJobNotFound
	}
	if err != nil {
		return Progress{}, fmt.Errorf("failed to read progress for job %s: %w", jobID, err)
	}
	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return Progress{}, fmt.Errorf("failed to decode progress for job %s: %w", jobID, err)
	}
	return p, nil
}

// Delete removes the record for jobID
func (s *RedisJobStore) Delete(ctx context.Context, jobID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(jobID))
	pipe.SRem(ctx, s.indexKey(), jobID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete job %s: %w", jobID, err)
	}
	return nil
}

// List returns every live record ordered by start time. Index entries whose
// record expired are dropped from the index.
func (s *RedisJobStore) List(ctx context.Context) ([]Progress, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	out := make([]Progress, 0, len(values))
	var expired []interface{}
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		var p Progress
		if err := json.Unmarshal([]byte(str), &p); err != nil {
			continue
		}
		out = append(out, p)
	}
	if len(expired) > 0 {
		s.client.SRem(ctx, s.indexKey(), expired...)
	}
	sortByStart(out)
	return out, nil
}
