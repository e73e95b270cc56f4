package structures

// MovieCharacter is a row of the many to many association between movies and characters.
type MovieCharacter struct {
	MovieID     int32 `json:"movie_id" bson:"movie_id"`
	CharacterID int32 `json:"character_id" bson:"character_id"`
}

// MovieCharacterColumn names the join table column a relationship lookup filters on.
type MovieCharacterColumn string

const (
	MovieCharacterColumnMovieID     MovieCharacterColumn = "movie_id"
	MovieCharacterColumnCharacterID MovieCharacterColumn = "character_id"
)

// Parent returns the key of the row on the side named by the column.
func (c MovieCharacterColumn) Parent(row MovieCharacter) int32 {
	if c == MovieCharacterColumnCharacterID {
		return row.CharacterID
	}
	return row.MovieID
}

// Child returns the key of the row on the opposite side of the column.
func (c MovieCharacterColumn) Child(row MovieCharacter) int32 {
	if c == MovieCharacterColumnCharacterID {
		return row.MovieID
	}
	return row.CharacterID
}

func (c MovieCharacterColumn) Valid() bool {
	return c == MovieCharacterColumnMovieID || c == MovieCharacterColumnCharacterID
}
