package handler

import (
	"net/http"

	"freelance-market/internal/middleware"
	"freelance-market/internal/model"
)

func actorFromRequest(r *http.Request) model.AuditActor {
	actor := model.AuditActor{IP: middleware.ClientIP(r)}

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return actor
	}

	actor.UserID = claims.UserID
	actor.Email = claims.Email
	actor.Role = claims.Role

	return actor
}
