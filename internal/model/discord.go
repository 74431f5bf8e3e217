package model

// Origin tells whether a value came from the chat platform or was substituted.
type Origin string

const (
	OriginUnknown   Origin = ""
	OriginLive      Origin = "live"
	OriginFallback  Origin = "fallback"
	OriginSynthetic Origin = "synthetic" // computed locally, never fetched
)

// Result carries a value that is always usable. Err holds the masked failure
// when Origin is OriginFallback.
type Result[T any] struct {
	Value  T
	Origin Origin
	Err    error
}

func Live[T any](value T) Result[T] {
	return Result[T]{Value: value, Origin: OriginLive}
}

func Fallback[T any](value T, err error) Result[T] {
	return Result[T]{Value: value, Origin: OriginFallback, Err: err}
}

func (r Result[T]) IsFallback() bool {
	return r.Origin == OriginFallback
}

type GuildInfo struct {
	ApproximateMemberCount int    `json:"approximate_member_count"`
	Name                   string `json:"name"`
}

type RawMessage struct {
	ID        string        `json:"id"`
	Author    MessageAuthor `json:"author"`
	Content   string        `json:"content"`
	Timestamp string        `json:"timestamp"`
}

type MessageAuthor struct {
	Username string `json:"username"`
}
