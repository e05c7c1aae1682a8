package crm

import (
	"context"
	"fmt"
)

// LiveChatChannel identifies the live chat channel embedded on the website.
type LiveChatChannel struct {
	ID   int64  `json:"channelId"`
	Name string `json:"name"`
}

// GetLiveChatConfig returns the first live chat channel, or ErrNotFound.
func (s *Service) GetLiveChatConfig(ctx context.Context) (LiveChatChannel, error) {
	rows, err := s.searchRead(ctx, "im_livechat.channel", nil, "id", "name")
	if err != nil {
		return LiveChatChannel{}, fmt.Errorf("failed to look up live chat channel: %w", err)
	}
	if len(rows) == 0 {
		return LiveChatChannel{}, fmt.Errorf("live chat channel: %w", ErrNotFound)
	}
	id, _ := rows[0].Member("id").Int()
	return LiveChatChannel{ID: id, Name: text(rows[0].Member("name"))}, nil
}
