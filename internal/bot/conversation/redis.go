// Package conversation keeps per-chat bot state: the verification token a chat was opened with,
// and the chat that confirmed a phone.
package conversation

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	tokenPrefix = "bot:chat:token:"
	phonePrefix = "bot:phone:chat:"
)

// RedisStore stores conversation state in Redis. Token keys expire after ttl; confirmed chats do not expire.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore returns a RedisStore. A non-positive ttl falls back to one hour.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

// SaveToken remembers that chatID started the bot with token, replacing any earlier token.
func (s *RedisStore) SaveToken(ctx context.Context, chatID int64, token string) error {
	return s.client.Set(ctx, tokenKey(chatID), token, s.ttl).Err()
}

// Token returns the token chatID started with, or "" when none is known.
func (s *RedisStore) Token(ctx context.Context, chatID int64) (string, error) {
	token, err := s.client.Get(ctx, tokenKey(chatID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return token, err
}

// RememberChat records chatID as the confirmed chat for phone and forgets the chat's token.
func (s *RedisStore) RememberChat(ctx context.Context, chatID int64, phone string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, phonePrefix+phone, chatID, 0)
		pipe.Del(ctx, tokenKey(chatID))
		return nil
	})
	return err
}

// ChatForPhone returns the confirmed chat for phone; ok is false when none is known.
func (s *RedisStore) ChatForPhone(ctx context.Context, phone string) (chatID int64, ok bool, err error) {
	raw, err := s.client.Get(ctx, phonePrefix+phone).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	chatID, err = strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return chatID, true, nil
}

func tokenKey(chatID int64) string {
	return tokenPrefix + strconv.FormatInt(chatID, 10)
}
