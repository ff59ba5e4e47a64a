package port

import (
	"context"
	"errors"

	"github.com/berfenger/weatherflow2mqtt/internal/core/domain"
)

var ErrDuplicateHost = errors.New("an entry for this host already exists")

type EntryStore interface {
	Create(ctx context.Context, title, source string, data domain.EntryData) (domain.ConfigEntry, error)
	List(ctx context.Context) ([]domain.ConfigEntry, error)
	Hosts(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) (bool, error)
}
