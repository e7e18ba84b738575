package model

import "time"

type Notification struct {
	Id         string    `json:"id"`
	UserId     string    `json:"userId"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	EntityType string    `json:"entityType,omitempty"`
	EntityId   string    `json:"entityId,omitempty"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"createdAt"`
}
