package backend

import (
	"context"
	"fmt"
	"time"

	"PortfolioDash/internal/domain/models"
)

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response *string `json:"response"`
	Category string  `json:"categoria"`
}

// SendMessage posts one chat message. A transport or decoding failure
// becomes an "Error de conexión" reply with category "error".
func (c *Client) SendMessage(ctx context.Context, message string) models.ChatReply {
	start := time.Now()
	var resp chatResponse
	if _, err := c.chat.PostJSON(ctx, pathChatMessage, chatRequest{Message: message}, &resp); err != nil {
		c.observe("chat", outcomeFailed, start, err)
		return models.ChatReply{
			Response: fmt.Sprintf("Error de conexión: %v", err),
			Category: models.ChatCategoryError,
		}
	}

	if resp.Response == nil {
		c.observe("chat", outcomeDegraded, start, nil)
		return models.ChatReply{Response: models.NoReplyText, Category: resp.Category}
	}
	c.observe("chat", outcomeOK, start, nil)
	return models.ChatReply{Response: *resp.Response, Category: resp.Category}
}

// Suggestions fetches the canned questions, or the built-in pair on failure.
func (c *Client) Suggestions(ctx context.Context) []string {
	start := time.Now()
	var list []string
	if _, err := c.lookup.GetJSON(ctx, pathChatSuggestions, nil, &list); err != nil {
		c.observe("suggestions", outcomeFailed, start, err)
		return models.DefaultSuggestions()
	}
	if list == nil {
		c.observe("suggestions", outcomeDegraded, start, fmt.Errorf("suggestions body is not a list"))
		return models.DefaultSuggestions()
	}
	c.observe("suggestions", outcomeOK, start, nil)
	return list
}
