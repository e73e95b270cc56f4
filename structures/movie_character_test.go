package structures

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMovieCharacterColumn(t *testing.T) {
	row := MovieCharacter{MovieID: 7, CharacterID: 11}

	assert.Equal(t, int32(7), MovieCharacterColumnMovieID.Parent(row))
	assert.Equal(t, int32(11), MovieCharacterColumnMovieID.Child(row))
	assert.Equal(t, int32(11), MovieCharacterColumnCharacterID.Parent(row))
	assert.Equal(t, int32(7), MovieCharacterColumnCharacterID.Child(row))

	assert.True(t, MovieCharacterColumnMovieID.Valid())
	assert.False(t, MovieCharacterColumn("title").Valid())
}
