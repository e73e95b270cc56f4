package structures

import "time"

type Movie struct {
	ID         int32     `json:"id" bson:"_id"`
	Title      string    `json:"title" bson:"title"`
	ReleasedAt time.Time `json:"released_at" bson:"released_at"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}
