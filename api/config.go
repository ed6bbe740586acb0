package api

import "time"

// Config controls the HTTP transport.
//
//	CONCIERGE_API_ADDRESS=:8080
//	CONCIERGE_API_TOKENS=alice-token:42,bob-token:7
//	CONCIERGE_API_ACTOR_HEADER=X-Actor-Id
type Config struct {
	Address string `json:"address" yaml:"address" split_words:"true"`

	// Tokens maps bearer tokens to actor ids.
	Tokens map[string]int64 `json:"tokens,omitempty" yaml:"tokens,omitempty" split_words:"true"`

	// ActorHeader names a header set by a trusted gateway that already
	// authenticated the caller. Empty disables it.
	ActorHeader string `json:"actor_header,omitempty" yaml:"actor_header,omitempty" split_words:"true"`

	// GuestActor is used for unauthenticated requests when positive.
	// Otherwise they are rejected.
	GuestActor int64 `json:"guest_actor,omitempty" yaml:"guest_actor,omitempty" split_words:"true"`

	MaxQueryLength int           `json:"max_query_length,omitempty" yaml:"max_query_length,omitempty" split_words:"true"`
	TurnTimeout    time.Duration `json:"turn_timeout,omitempty" yaml:"turn_timeout,omitempty" split_words:"true"`
}

// DefaultConfig listens on :8080 with no tokens and no guest access.
func DefaultConfig() Config {
	return Config{
		Address:        ":8080",
		MaxQueryLength: 4096,
		TurnTimeout:    2 * time.Minute,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Address != "" {
		c.Address = source.Address
	}
	if len(source.Tokens) > 0 {
		if c.Tokens == nil {
			c.Tokens = make(map[string]int64, len(source.Tokens))
		}
		for token, actor := range source.Tokens {
			c.Tokens[token] = actor
		}
	}
	if source.ActorHeader != "" {
		c.ActorHeader = source.ActorHeader
	}
	if source.GuestActor > 0 {
		c.GuestActor = source.GuestActor
	}
	if source.MaxQueryLength > 0 {
		c.MaxQueryLength = source.MaxQueryLength
	}
	if source.TurnTimeout > 0 {
		c.TurnTimeout = source.TurnTimeout
	}
}
