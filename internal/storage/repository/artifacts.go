package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/entitlement-core/internal/models"
)

// GetPublishedArtifact возвращает опубликованный артефакт по slug.
// Неопубликованный артефакт не отличается от отсутствующего.
func (s *Storage) GetPublishedArtifact(ctx context.Context, slug string) (*models.Artifact, error) {
	const op = "storage.GetPublishedArtifact"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, account_id, service_slug, slug, title, branding, content, contact_url, published
			  FROM artifacts
			  WHERE slug = $1 AND published`
	var (
		a                 models.Artifact
		branding, content []byte
	)
	err := s.q(ctx).QueryRowContext(ctx, query, slug).Scan(&a.ID, &a.AccountID, &a.ServiceSlug, &a.Slug,
		&a.Title, &branding, &content, &a.ContactURL, &a.Published)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	a.Branding = branding
	a.Content = content
	return &a, nil
}
