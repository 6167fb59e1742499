package port

import "context"

// CrudService is the capability shared by the entity services. E is the
// stored entity and In the input shape clients may write.
type CrudService[E any, In any] interface {
	GetAll(ctx context.Context) ([]E, error)
	Get(ctx context.Context, id int64) (*E, error)
	Add(ctx context.Context, in In) (int64, error)
	Update(ctx context.Context, id int64, in In) error
	Delete(ctx context.Context, id int64) error
}
