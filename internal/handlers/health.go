package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/go-eventdesk/httpx"
)

type HealthHandler struct {
	responder
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB, log *zap.Logger) *HealthHandler {
	return &HealthHandler{responder: newResponder(log), db: db}
}

type healthStatus struct {
	Status   string    `json:"status"`
	Database string    `json:"database"`
	Time     time.Time `json:"time"`
}

// Check pings the database with a short deadline.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	res := healthStatus{Status: "ok", Database: "up", Time: time.Now().UTC()}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		res.Status, res.Database = "degraded", "down"
		httpx.JSON(w, http.StatusServiceUnavailable, res)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}
