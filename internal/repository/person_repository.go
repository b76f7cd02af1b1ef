package repository

import (
	"context"
	"time"

	"github.com/plume-sante/community-backend/internal/model"
	"gorm.io/gorm"
)

// PersonRepository is the identity-lookup collaborator: the conversation core
// only needs pseudos and last-activity, profile management lives elsewhere.
type PersonRepository interface {
	Create(ctx context.Context, p *model.Person) error
	FindByID(ctx context.Context, id uint64) (*model.Person, error)
	FindByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Person, error)
	TouchActive(ctx context.Context, id uint64) error
	WithTx(tx *gorm.DB) PersonRepository
}

type personRepository struct {
	db *gorm.DB
}

func NewPersonRepository(db *gorm.DB) PersonRepository {
	return &personRepository{db: db}
}

func (r *personRepository) WithTx(tx *gorm.DB) PersonRepository {
	return &personRepository{db: tx}
}

func (r *personRepository) Create(ctx context.Context, p *model.Person) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *personRepository) FindByID(ctx context.Context, id uint64) (*model.Person, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var p model.Person
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *personRepository) FindByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Person, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	out := make(map[uint64]model.Person, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var list []model.Person
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}

func (r *personRepository) TouchActive(ctx context.Context, id uint64) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).
		Model(&model.Person{}).
		Where("id = ?", id).
		Update("last_active_at", time.Now()).Error
}
