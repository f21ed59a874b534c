// Package models contains data models for storage operations.
package models

import "time"

// Image is a persisted generation result.
type Image struct {
	Key       string    `json:"key" bson:"key"`
	Prompt    string    `json:"prompt,omitempty" bson:"prompt"`
	Data      []byte    `json:"-" bson:"data"`
	MediaType string    `json:"media_type" bson:"media_type"`
	Size      int64     `json:"size" bson:"size"`
	Digest    string    `json:"digest" bson:"digest"` // hex blake2b-256 of Data
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
