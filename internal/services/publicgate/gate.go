// Package publicgate отдаёт опубликованный контент анонимным посетителям.
// Доступ владельца перепроверяется на каждом запросе; при любом сомнении
// вместо контента показывается заглушка.
package publicgate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/entitlement-core/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-core/internal/models"
	"github.com/magabrotheeeer/entitlement-core/internal/services/entitlement"
)

// PaywallMessage текст предложения связаться с владельцем.
const PaywallMessage = "This page is temporarily unavailable. Please contact the owner."

// ArtifactRepository читает опубликованные артефакты.
type ArtifactRepository interface {
	GetPublishedArtifact(ctx context.Context, slug string) (*models.Artifact, error)
}

// Resolver вычисляет доступ владельца.
type Resolver interface {
	Resolve(ctx context.Context, accountID, serviceSlug string, now time.Time) (entitlement.AccessStatus, error)
}

// Recorder учитывает показы публичных страниц.
type Recorder interface {
	ObservePublicView(paywalled bool)
}

// Gate публичный шлюз доступа.
type Gate struct {
	artifacts ArtifactRepository
	resolver  Resolver
	metrics   Recorder
	log       *slog.Logger
}

// New создаёт Gate. metrics может быть nil.
func New(artifacts ArtifactRepository, resolver Resolver, metrics Recorder, log *slog.Logger) *Gate {
	return &Gate{
		artifacts: artifacts,
		resolver:  resolver,
		metrics:   metrics,
		log:       log,
	}
}

// View возвращает представление артефакта slug для посетителя в момент now.
// Неизвестный или неопубликованный slug даёт models.ErrNotFound. Ошибки вычисления
// доступа посетителю не видны: вместо контента отдаётся заглушка.
func (g *Gate) View(ctx context.Context, slug string, now time.Time) (*models.PublicView, error) {
	const op = "publicgate.View"

	artifact, err := g.artifacts.GetPublishedArtifact(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !artifact.Published {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	granted := false
	status, err := g.resolver.Resolve(ctx, artifact.AccountID, artifact.ServiceSlug, now)
	switch {
	case err != nil:
		g.log.Error("failed to resolve owner entitlement, serving paywall",
			sl.Op(op),
			slog.String("slug", slug),
			sl.Err(err))
	case status.Granted():
		granted = true
	default:
		g.log.Debug("owner has no access, serving paywall",
			slog.String("slug", slug),
			slog.String("kind", string(status.Kind)))
	}

	if g.metrics != nil {
		g.metrics.ObservePublicView(!granted)
	}
	if granted {
		return full(artifact), nil
	}
	return paywall(artifact), nil
}

func full(a *models.Artifact) *models.PublicView {
	return &models.PublicView{
		Slug:     a.Slug,
		Title:    a.Title,
		Branding: a.Branding,
		Content:  a.Content,
	}
}

func paywall(a *models.Artifact) *models.PublicView {
	return &models.PublicView{
		Slug:      a.Slug,
		Title:     a.Title,
		Branding:  a.Branding,
		Paywalled: true,
		Contact: &models.Contact{
			Message: PaywallMessage,
			URL:     a.ContactURL,
		},
	}
}
