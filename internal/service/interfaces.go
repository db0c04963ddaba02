package service

import (
	"context"

	"github.com/MKhiriev/go-sync-keeper/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/service_mock.go -package=mock

// RecordService is the backend's per-user record store. Every successful
// write is published to the change feed of its collection.
type RecordService interface {
	List(ctx context.Context, userID string, collection models.Collection) ([]models.Record, error)
	// Insert assigns a server id to payload and stores it.
	Insert(ctx context.Context, userID string, collection models.Collection, payload models.Record) (models.Record, error)
	Update(ctx context.Context, userID string, collection models.Collection, id string, patch models.Record) (models.Record, error)
	// Delete is idempotent: removing an unknown id succeeds.
	Delete(ctx context.Context, userID string, collection models.Collection, id string) error
}

// ChangeHub fans change events out to the push subscribers of a user's
// collection.
type ChangeHub interface {
	Publish(ctx context.Context, userID string, event models.ChangeEvent)
	// Subscribe returns the event channel and a function that releases it.
	Subscribe(userID string, collection models.Collection) (<-chan models.ChangeEvent, func())
}

type AuthService interface {
	CreateToken(ctx context.Context, userID string) (models.Token, error)
	ParseToken(ctx context.Context, tokenString string) (models.Token, error)
}

type AppInfoService interface {
	GetAppVersion(ctx context.Context) string
}

// IDGenerator assigns ids to inserted records.
type IDGenerator interface {
	Generate() string
}
