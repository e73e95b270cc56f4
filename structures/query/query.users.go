package query

import (
	"context"

	"github.com/cinegraph/common/dataloader"
	"github.com/cinegraph/common/structures"
)

// UsersByID loads user rows as stored, soft deleted ones included.
func (q *Query) UsersByID() dataloader.BatchFunc[int32, structures.User] {
	return dataloader.Index(q.users, func(u structures.User) int32 { return u.ID })
}

func (q *Query) users(ctx context.Context, ids []int32) ([]structures.User, error) {
	users, err := q.store.Users(ctx, ids)
	if err != nil {
		return nil, backendError("users", err)
	}

	return users, nil
}
