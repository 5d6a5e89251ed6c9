// Package worker contains the asynchronous half of the message pipeline: the
// task definition shared with producers and the consumer that turns pending
// messages into completed ones by calling the AI provider.
package worker

import (
	"encoding/json"

	"chatroom-backend/internal/queue"
)

// TaskTypeProcessMessage routes message-processing jobs to their handler.
const TaskTypeProcessMessage = "message:process"

// ProcessMessagePayload is the wire body of a message-processing job. It
// carries everything the worker needs so the consumer never has to join back
// to the submitting request.
type ProcessMessagePayload struct {
	MessageID  string `json:"message_id"`
	ChatroomID string `json:"chatroom_id"`
	UserID     string `json:"user_id"`
	Message    string `json:"message"`
}

// NewMessageTask builds the queue task for a freshly submitted message.
func NewMessageTask(messageID, chatroomID, userID, text string) queue.Task {
	b, _ := json.Marshal(ProcessMessagePayload{
		MessageID:  messageID,
		ChatroomID: chatroomID,
		UserID:     userID,
		Message:    text,
	})
	return queue.Task{Type: TaskTypeProcessMessage, Payload: b}
}
