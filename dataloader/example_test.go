package dataloader_test

import (
	"context"
	"fmt"

	"github.com/cinegraph/common/dataloader"
)

func ExampleLoader() {
	type User struct {
		ID   int32
		Name string
	}

	fetch := func(ctx context.Context, ids []int32) (map[int32]User, error) {
		// a real fetch would run one query with an IN clause
		fmt.Printf("fetching %v\n", ids)
		out := map[int32]User{}
		for _, id := range ids {
			out[id] = User{ID: id, Name: fmt.Sprintf("user #%d", id)}
		}
		return out, nil
	}

	ctx := context.Background()
	loader := dataloader.NewLoader(ctx, fetch, dataloader.WithWait(0))

	thunk1 := loader.LoadThunk(6)
	thunk2 := loader.LoadThunk(32)
	thunk3 := loader.LoadThunk(6)
	loader.Flush()

	for i, thunk := range []dataloader.Thunk[User]{thunk1, thunk2, thunk3} {
		v, found, err := thunk(ctx)
		fmt.Printf("thunk%d returns (%+v, %v, %v)\n", i+1, v, found, err)
	}

	// Output:
	// fetching [6 32]
	// thunk1 returns ({ID:6 Name:user #6}, true, <nil>)
	// thunk2 returns ({ID:32 Name:user #32}, true, <nil>)
	// thunk3 returns ({ID:6 Name:user #6}, true, <nil>)
}
