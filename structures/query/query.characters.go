package query

import (
	"context"

	"github.com/cinegraph/common/dataloader"
	"github.com/cinegraph/common/structures"
)

func (q *Query) CharactersByID() dataloader.BatchFunc[int32, structures.Character] {
	return dataloader.Index(q.characters, func(c structures.Character) int32 { return c.ID })
}

func (q *Query) characters(ctx context.Context, ids []int32) ([]structures.Character, error) {
	characters, err := q.store.Characters(ctx, ids)
	if err != nil {
		return nil, backendError("characters", err)
	}

	return characters, nil
}
