package service

import (
	"context"
	"errors"

	"ipnote/internal/models"
	"ipnote/internal/types"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 50
)

// paginate returns one keyset page of messages matching filter, ordered by
// (createdAt DESC, id DESC). cursor is the id of the last message of the
// previous page and must itself match filter; mismatch is the error text used
// when it does not. Callers substitute DefaultPageLimit when no limit was given.
func (s *MessageService) paginate(ctx context.Context, filter MessageFilter, cursor string, limit int, mismatch string) (*models.Page, error) {
	if limit < 1 || limit > MaxPageLimit {
		return nil, validationError(msgInvalidLimit)
	}

	var after *models.Message
	if cursor != "" {
		msg, err := s.repo.GetMessage(ctx, cursor)
		if errors.Is(err, types.ErrNotFound) {
			return nil, notFoundError(msgCursorNotFound)
		}
		if err != nil {
			return nil, err
		}
		if !filter.Matches(msg) {
			return nil, forbiddenError(mismatch)
		}
		after = msg
	}

	messages, err := s.repo.ListMessages(ctx, filter, after, limit)
	if err != nil {
		return nil, err
	}

	// A full page always carries a cursor, even if the next page is empty.
	page := &models.Page{Data: messages}
	if len(messages) == limit {
		next := messages[len(messages)-1].ID
		page.NextCursor = &next
	}
	return page, nil
}
