package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"social-service/internal/models"
	"social-service/internal/observability"
	"social-service/internal/repositories"
	"social-service/internal/telemetry"
)

// MessageHandler owns direct messaging and the conversation projection.
type MessageHandler struct {
	users    repositories.UserRepository
	messages repositories.MessageRepository
	emitter  *telemetry.AuditEmitter
	log      *zap.SugaredLogger
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(users repositories.UserRepository, messages repositories.MessageRepository, emitter *telemetry.AuditEmitter, log *zap.SugaredLogger) *MessageHandler {
	return &MessageHandler{users: users, messages: messages, emitter: emitter, log: log}
}

// Send appends a direct message. Optional extras (attachment URIs, reply
// reference) are stored only when the request supplies them.
func (h *MessageHandler) Send(c *gin.Context) {
	sender, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		ReceiverUsername string  `json:"receiverUsername"`
		Content          string  `json:"content"`
		Type             string  `json:"type"`
		ImageURI         *string `json:"imageUri"`
		AudioURI         *string `json:"audioUri"`
		ReplyToMessageID *int    `json:"replyToMessageId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ReceiverUsername == "" || req.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "receiver username and content are required"})
		return
	}

	receiver, err := h.users.GetByUsername(c.Request.Context(), req.ReceiverUsername)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "receiver not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		return
	}

	msgType := req.Type
	if msgType == "" {
		msgType = "text"
	}

	msg := models.Message{
		SenderID:         sender.Email,
		SenderUsername:   sender.Username,
		ReceiverID:       receiver.Email,
		ReceiverUsername: receiver.Username,
		Content:          req.Content,
		Type:             msgType,
		ImageURI:         req.ImageURI,
		AudioURI:         req.AudioURI,
		ReplyToMessageID: req.ReplyToMessageID,
		Timestamp:        time.Now().UTC(),
		IsRead:           false,
		IsDelivered:      true,
	}

	stored, err := h.messages.Create(c.Request.Context(), &msg)
	if err != nil {
		h.log.Errorw("send message failed", "sender", sender.Username, "receiver", receiver.Username, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		return
	}

	observability.IncMessageSent()
	h.emitter.Emit(c.Request.Context(), "INFO",
		fmt.Sprintf("message sent from %s to %s", sender.Username, receiver.Username),
		requestIDFromContext(c), auditUserID(sender))

	c.JSON(http.StatusOK, gin.H{"success": true, "message": stored})
}

// Conversation returns the full ordered message history between the actor
// and one partner.
func (h *MessageHandler) Conversation(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	partner, err := h.users.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get conversation"})
		return
	}

	msgs, err := h.messages.ConversationBetween(c.Request.Context(), actor.Email, partner.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get conversation"})
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	c.JSON(http.StatusOK, msgs)
}

// Conversations projects the actor's message history into one summary per
// conversation partner:
//
//  1. every non-group message the actor participates in is grouped by the
//     other participant's identifier,
//  2. the representative of each group is the latest message (ties broken by
//     append order),
//  3. the unread count is recomputed per partner against current store
//     state, not the fetched snapshot, since mark-read can race with this
//     scan,
//  4. partner display identity comes from the representative's cached
//     username fields, so a renamed partner shows stale until a new message
//     exists.
//
// Summaries are ordered newest conversation first.
func (h *MessageHandler) Conversations(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	msgs, err := h.messages.AllForParticipant(c.Request.Context(), actor.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get conversations"})
		return
	}

	latest := make(map[string]models.Message)
	for _, m := range msgs {
		partnerID, _ := m.PartnerOf(actor.Email)
		cur, seen := latest[partnerID]
		if !seen || m.Timestamp.After(cur.Timestamp) ||
			(m.Timestamp.Equal(cur.Timestamp) && m.ID > cur.ID) {
			latest[partnerID] = m
		}
	}

	type conversation struct {
		summary models.ConversationSummary
		rep     models.Message
		partner string
	}

	conversations := make([]conversation, 0, len(latest))
	for partnerID, rep := range latest {
		unread, err := h.messages.CountUnreadFrom(c.Request.Context(), actor.Email, partnerID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get conversations"})
			return
		}

		_, partnerName := rep.PartnerOf(actor.Email)
		conversations = append(conversations, conversation{
			summary: models.ConversationSummary{
				ID:            partnerName,
				Username:      partnerName,
				Name:          partnerName,
				LastMessage:   rep.Content,
				LastTimestamp: rep.Timestamp.UTC().Format(time.RFC3339Nano),
				UnreadCount:   unread,
				IsGroup:       false,
			},
			rep:     rep,
			partner: partnerID,
		})
	}

	// Newest first; partner id breaks timestamp ties so the order is a
	// strict total order for a fixed input.
	sort.Slice(conversations, func(i, j int) bool {
		ti, tj := conversations[i].rep.Timestamp, conversations[j].rep.Timestamp
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return conversations[i].partner < conversations[j].partner
	})

	summaries := make([]models.ConversationSummary, 0, len(conversations))
	for _, conv := range conversations {
		summaries = append(summaries, conv.summary)
	}

	c.JSON(http.StatusOK, summaries)
}

// MarkRead flips every unread message from the named sender to read, one row
// at a time. Partial completion before a store failure is not rolled back.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	sender, err := h.users.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark messages as read"})
		return
	}

	unread, err := h.messages.UnreadForReceiver(c.Request.Context(), actor.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark messages as read"})
		return
	}

	marked := 0
	for _, m := range unread {
		if m.SenderID != sender.Email {
			continue
		}
		if err := h.messages.MarkRead(c.Request.Context(), m.ID); err != nil {
			h.log.Errorw("mark-read: flip failed", "actor", actor.Username, "message_id", m.ID, "marked_so_far", marked, "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark messages as read"})
			return
		}
		marked++
	}

	h.emitter.Emit(c.Request.Context(), "INFO",
		fmt.Sprintf("%s marked %d messages from %s as read", actor.Username, marked, sender.Username),
		requestIDFromContext(c), auditUserID(actor))

	c.JSON(http.StatusOK, gin.H{"success": true, "markedCount": marked})
}

// Edit replaces a message body. Sender-only; the edited flag transitions
// once and deleted messages are immutable.
func (h *MessageHandler) Edit(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	msg, err := h.messages.GetByID(c.Request.Context(), messageID)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to edit message"})
		return
	}
	if msg.SenderID != actor.Email {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the sender can edit a message"})
		return
	}
	if msg.IsDeleted {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is deleted"})
		return
	}

	editedAt := time.Now().UTC()
	if err := h.messages.UpdateContent(c.Request.Context(), messageID, req.Content, editedAt); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to edit message"})
		return
	}

	msg.Content = req.Content
	msg.IsEdited = true
	msg.EditedAt = &editedAt
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
}

// Delete soft-deletes a message. Sender-only; the flag transitions once.
func (h *MessageHandler) Delete(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	msg, err := h.messages.GetByID(c.Request.Context(), messageID)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete message"})
		return
	}
	if msg.SenderID != actor.Email {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the sender can delete a message"})
		return
	}
	if msg.IsDeleted {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is already deleted"})
		return
	}

	if err := h.messages.MarkDeleted(c.Request.Context(), messageID, time.Now().UTC()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete message"})
		return
	}

	c.Status(http.StatusNoContent)
}
