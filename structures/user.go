package structures

import "time"

type User struct {
	ID        int32     `json:"id" bson:"_id"`
	UUID      string    `json:"uuid" bson:"uuid"`
	Hash      []byte    `json:"-" bson:"hash"`
	Salt      string    `json:"-" bson:"salt"`
	Email     string    `json:"email" bson:"email"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
	Deleted   bool      `json:"deleted" bson:"deleted"`
}
