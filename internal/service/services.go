package service

import (
	"github.com/MKhiriev/go-sync-keeper/internal/config"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/internal/store"
	"github.com/MKhiriev/go-sync-keeper/internal/utils"
)

// Services groups the backend services.
type Services struct {
	AuthService    AuthService
	RecordService  RecordService
	ChangeHub      ChangeHub
	AppInfoService AppInfoService
}

func NewServices(storages *store.Storages, cfg *config.ServerConfig, logger *logger.Logger) (*Services, error) {
	appInfo, err := NewAppInfoService(cfg.Version, logger)
	if err != nil {
		return nil, err
	}

	hub := NewChangeHub(DefaultHubBuffer, logger)
	return &Services{
		AuthService:    NewAuthService(cfg.TokenSignKey, cfg.TokenIssuer, cfg.TokenDuration, logger),
		RecordService:  NewRecordService(storages.RecordRepository, hub, utils.NewUUIDGenerator(), logger),
		ChangeHub:      hub,
		AppInfoService: appInfo,
	}, nil
}
