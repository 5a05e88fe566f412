package redis

import (
	"context"
	"math"
	"strconv"

	"github.com/pawa80/search-intelligence-suite/internal/db"
)

// ZAdd adds a member with the given score, updating the score if the member
// already exists.
func (s *Store) ZAdd(ctx context.Context, key string, score float64, member string) error {
	cmd := s.b().Zadd().Key(key).ScoreMember().ScoreMember(score, member).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpZAdd, Err: err}
	}
	return nil
}

// ZRangeByScore returns members with scores in [min, max], ascending.
// ±Inf bounds are passed through as open range ends.
func (s *Store) ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error) {
	cmd := s.b().Zrangebyscore().Key(key).Min(formatScore(min)).Max(formatScore(max)).Build()
	members, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpZRangeByScore, Err: err}
	}
	return members, nil
}

func formatScore(v float64) string {
	switch {
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsInf(v, 1):
		return "+inf"
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}
