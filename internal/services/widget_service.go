package services

import (
	"context"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/origin"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/session"
)

// TokenIssuer is satisfied by *airbyte.Client.
type TokenIssuer interface {
	WidgetToken(ctx context.Context, externalUserID, allowedOrigin string) (string, error)
}

type WidgetService struct {
	resolver *session.Resolver
	issuer   TokenIssuer
	policy   *origin.Policy
}

func NewWidgetService(resolver *session.Resolver, issuer TokenIssuer, policy *origin.Policy) *WidgetService {
	return &WidgetService{resolver: resolver, issuer: issuer, policy: policy}
}

// Issue resolves the claim, creating the user on first sight, and returns
// a widget token scoped to the user's email and the resolved origin.
func (s *WidgetService) Issue(ctx context.Context, claim, requestOrigin string) (string, error) {
	user, err := s.resolver.Resolve(ctx, claim)
	if err != nil {
		return "", err
	}

	allowedOrigin := s.policy.Resolve(requestOrigin)
	slog.Debug("issuing widget token", "email", user.Email, "request_origin", requestOrigin, "allowed_origin", allowedOrigin)

	return s.issuer.WidgetToken(ctx, user.Email, allowedOrigin)
}
