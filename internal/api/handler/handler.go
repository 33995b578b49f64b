package handler

import "ams-server/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth    *AuthHandler
	Academy *AcademyHandler
	User    *UserHandler
	Batch   *BatchHandler
	Player  *PlayerHandler
	Session *SessionHandler
	Records *RecordsHandler
	Export  *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:    NewAuthHandler(svc.Auth),
		Academy: NewAcademyHandler(svc.Academy),
		User:    NewUserHandler(svc.User),
		Batch:   NewBatchHandler(svc.Batch),
		Player:  NewPlayerHandler(svc.Player),
		Session: NewSessionHandler(svc.Session),
		Records: NewRecordsHandler(svc.Rating, svc.Credential, svc.Injury, svc.Finance),
		Export:  NewExportHandler(svc.Export),
	}
}
