// Package models содержит доменные структуры платформы: учётные записи, сервисы,
// подписки, платежи, записи аудита и опубликованные артефакты.
// Структуры используются в бизнес-логике, хранилище и HTTP-слое.
package models

import "time"

// Role роль учётной записи.
type Role string

const (
	// RoleStandard обычный клиент платформы.
	RoleStandard Role = "standard"
	// RoleAdmin администратор.
	RoleAdmin Role = "admin"
	// RoleSuperAdmin администратор с полными правами.
	RoleSuperAdmin Role = "super-admin"
)

// IsAdmin сообщает, может ли роль выполнять административные операции.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Account представляет зарегистрированного пользователя платформы.
type Account struct {
	ID           string    // Уникальный идентификатор (UUID)
	Username     string    // Имя пользователя (уникальное)
	Email        string    // Электронная почта
	Label        string    // Отображаемое имя, используется в уведомлениях
	PasswordHash string    // Хэш пароля
	Role         Role      // Роль
	Active       bool      // Выключатель администратора, не зависит от подписок
	CreatedAt    time.Time // Дата регистрации, от неё отсчитывается пробный период
}

// DisplayName возвращает Label, а если он пуст — Username.
func (a Account) DisplayName() string {
	if a.Label != "" {
		return a.Label
	}
	return a.Username
}

// Actor идентифицирует того, кто выполняет операцию.
// Role и Active читаются из хранилища на каждом запросе, а не из токена.
type Actor struct {
	ID     string
	Role   Role
	Active bool
}
