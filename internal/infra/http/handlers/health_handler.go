package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/xavierca1/ligue-crm/internal/usecase"
)

const Version = "1.0.0"

type redisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

type statusProvider interface {
	Status() usecase.IngestionStatus
}

type HealthHandler struct {
	DB        *sql.DB
	RabbitMQ  *amqp091.Connection
	Redis     redisPinger
	Ingestion statusProvider
	StartTime time.Time
}

type HealthResponse struct {
	Status       string                  `json:"status"`
	Version      string                  `json:"version"`
	Uptime       string                  `json:"uptime"`
	Dependencies map[string]string       `json:"dependencies"`
	Ingestion    usecase.IngestionStatus `json:"ingestion"`
}

func NewHealthHandler(db *sql.DB, rabbitMQ *amqp091.Connection, rdb redisPinger, ingestion statusProvider) *HealthHandler {
	return &HealthHandler{
		DB:        db,
		RabbitMQ:  rabbitMQ,
		Redis:     rdb,
		Ingestion: ingestion,
		StartTime: time.Now(),
	}
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	deps := make(map[string]string)

	// Check Database
	if h.DB != nil {
		if err := h.DB.PingContext(ctx); err != nil {
			deps["database"] = fmt.Sprintf("unhealthy: %v", err)
		} else {
			deps["database"] = "healthy"
		}
	} else {
		deps["database"] = "not configured"
	}

	// Check RabbitMQ
	if h.RabbitMQ != nil {
		if h.RabbitMQ.IsClosed() {
			deps["rabbitmq"] = "unhealthy: connection closed"
		} else {
			deps["rabbitmq"] = "healthy"
		}
	} else {
		deps["rabbitmq"] = "not configured"
	}

	// Check Redis
	if h.Redis != nil {
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			deps["redis"] = fmt.Sprintf("unhealthy: %v", err)
		} else {
			deps["redis"] = "healthy"
		}
	} else {
		deps["redis"] = "not configured"
	}

	var ingestion usecase.IngestionStatus
	if h.Ingestion != nil {
		ingestion = h.Ingestion.Status()
		switch {
		case ingestion.LastError != "":
			deps["ingestion"] = "unhealthy: " + ingestion.LastError
		case ingestion.Version == 0:
			deps["ingestion"] = "unhealthy: no data loaded"
		default:
			deps["ingestion"] = "healthy"
		}
	}

	// Determine overall status
	status := "healthy"
	for _, v := range deps {
		if v != "healthy" && v != "not configured" {
			status = "degraded"
			break
		}
	}

	response := HealthResponse{
		Status:       status,
		Version:      Version,
		Uptime:       time.Since(h.StartTime).Round(time.Second).String(),
		Dependencies: deps,
		Ingestion:    ingestion,
	}

	w.Header().Set("Content-Type", "application/json")
	if status == "degraded" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(response)
}
