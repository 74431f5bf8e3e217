package model

import "time"

// MaxMessages caps the number of recent channel messages kept in a snapshot.
const MaxMessages = 5

// DashboardState is the read-only view model handed to dashboard clients.
// Version increases with every change, so a consumer holding a higher
// version can discard a lower one.
type DashboardState struct {
	Snapshot  ServerSnapshot `json:"snapshot"`
	UI        UIState        `json:"ui"`
	Source    SourceStatus   `json:"source"`
	UpdatedAt time.Time      `json:"updated_at"`
	Version   uint64         `json:"version"`
}

type ServerSnapshot struct {
	TotalMembers        int           `json:"total_members"`
	TotalMembersDisplay string        `json:"total_members_display"`
	LastMessages        []ChatMessage `json:"last_messages"`
	Admins              []AdminEntry  `json:"admins"`
	ActivityData        []DayCount    `json:"activity_data"`
}

type ChatMessage struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type DayCount struct {
	Day      string `json:"day"`
	Messages int    `json:"messages"`
}

type AdminEntry struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type UIState struct {
	Loading        bool    `json:"loading"`
	SendingMessage bool    `json:"sending_message"`
	Error          *string `json:"error"`
	ComposerText   string  `json:"composer_text"`
}

// SourceStatus records whether the values last applied for each read came
// from the platform or were substituted.
type SourceStatus struct {
	Guild    Origin `json:"guild"`
	Messages Origin `json:"messages"`
	Stats    Origin `json:"stats"`
}

// Clone returns a copy that shares no slices or pointers with s.
func (s DashboardState) Clone() DashboardState {
	out := s
	out.Snapshot.LastMessages = cloneSlice(s.Snapshot.LastMessages)
	out.Snapshot.Admins = cloneSlice(s.Snapshot.Admins)
	out.Snapshot.ActivityData = cloneSlice(s.Snapshot.ActivityData)
	if s.UI.Error != nil {
		msg := *s.UI.Error
		out.UI.Error = &msg
	}
	return out
}

// cloneSlice never returns nil so empty lists encode as [] rather than null.
func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
