package store

import (
	"github.com/Chuksremi15/wiseramp-backend/internal/store/order"
	"github.com/Chuksremi15/wiseramp-backend/internal/store/sweepqueue"
)

type Store struct {
	Order      order.IStore
	SweepQueue sweepqueue.IStore
}

func New() *Store {
	return &Store{
		Order:      order.New(),
		SweepQueue: sweepqueue.New(),
	}
}
