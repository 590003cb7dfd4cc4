package app

import (
	"context"
	"time"

	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/shandysiswandi/twofa/internal/pkg/router"
)

type healthResponse struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

func (healthResponse) Message() string { return "ok" }

// health reports whether Postgres and Redis answer within a second.
func (a *App) health(r *router.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()

	if err := a.dbConn.Ping(ctx); err != nil {
		return nil, goerror.NewServer(err)
	}
	if err := a.cacheConn.Ping(ctx).Err(); err != nil {
		return nil, goerror.NewServer(err)
	}

	return healthResponse{Database: "up", Redis: "up"}, nil
}
