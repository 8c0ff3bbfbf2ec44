package graphql

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/graphql-go/graphql"

	"initguard/internal/storage"
)

// resolveAttempts handles the attempts query
func (s *Schema) resolveAttempts(p graphql.ResolveParams) (interface{}, error) {
	opts := storage.QueryOptions{
		Limit:  50, // Default limit
		Offset: 0,  // Default offset
	}

	if outcomes, ok := p.Args["outcome"].([]interface{}); ok {
		for _, o := range outcomes {
			if outcome, ok := o.(storage.Outcome); ok {
				opts.Outcomes = append(opts.Outcomes, outcome)
			}
		}
	}

	if userID, ok := p.Args["userId"].(string); ok && userID != "" {
		id, err := strconv.ParseInt(userID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid userId %q", userID)
		}
		opts.UserID = id
	}

	// Parse since/until
	if since, ok := p.Args["since"].(time.Time); ok {
		opts.Since = since
	}

	if until, ok := p.Args["until"].(time.Time); ok {
		opts.Until = until
	}

	// Parse limit/offset
	if limit, ok := p.Args["limit"].(int); ok && limit > 0 {
		opts.Limit = limit
	}

	if offset, ok := p.Args["offset"].(int); ok && offset >= 0 {
		opts.Offset = offset
	}

	attempts, total, err := s.store.ListAttempts(p.Context, opts)
	if err != nil {
		s.logger.Error("Error listing attempts", "error", err)
		return nil, err
	}

	return map[string]interface{}{
		"attempts": attempts,
		"total":    total,
	}, nil
}

// resolveAttempt handles the attempt query
func (s *Schema) resolveAttempt(p graphql.ResolveParams) (interface{}, error) {
	id, ok := p.Args["id"].(string)
	if !ok || id == "" {
		return nil, fmt.Errorf("invalid attempt ID")
	}

	attempt, err := s.store.GetAttempt(p.Context, id)
	if storage.IsNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("Error getting attempt", "error", err)
		return nil, err
	}

	return attempt, nil
}

// resolveStats handles the stats query
func (s *Schema) resolveStats(p graphql.ResolveParams) (interface{}, error) {
	var since time.Time
	if sinceArg, ok := p.Args["since"].(time.Time); ok {
		since = sinceArg
	}

	statsMap, err := s.store.GetStats(p.Context, since)
	if err != nil {
		s.logger.Error("Error getting stats", "error", err)
		return nil, err
	}

	stats := make([]map[string]interface{}, 0, len(statsMap))
	for outcome, count := range statsMap {
		stats = append(stats, map[string]interface{}{
			"outcome": storage.Outcome(outcome),
			"count":   count,
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i]["outcome"].(storage.Outcome) < stats[j]["outcome"].(storage.Outcome)
	})

	return stats, nil
}

func unixTime(secs int64) time.Time {
	return time.Unix(secs, 0).UTC()
}
