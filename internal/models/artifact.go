package models

import "encoding/json"

// Artifact — опубликованный владельцем контент (меню, документ, QR-страница),
// доступный анонимным посетителям по постоянному slug.
type Artifact struct {
	ID          int64
	AccountID   string
	ServiceSlug string
	Slug        string
	Title       string
	Branding    json.RawMessage
	Content     json.RawMessage
	ContactURL  string
	Published   bool
}

// PublicView — то, что отдаётся посетителю публичной страницы.
// При Paywalled контент скрыт, оформление сохраняется.
type PublicView struct {
	Slug      string          `json:"slug"`
	Title     string          `json:"title"`
	Branding  json.RawMessage `json:"branding,omitempty"`
	Paywalled bool            `json:"paywalled"`
	Content   json.RawMessage `json:"content,omitempty"`
	Contact   *Contact        `json:"contact,omitempty"`
}

// Contact — фиксированное предложение связаться с владельцем.
type Contact struct {
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
}
