package model

import "time"

// SupportTicket is a help request filed by a user.
type SupportTicket struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateTicketRequest is the payload for POST /support/tickets.
type CreateTicketRequest struct {
	Subject string `json:"subject" binding:"required,min=3,max=200"`
	Message string `json:"message" binding:"required,min=10,max=5000"`
}
