package models

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleReporter   Role = "reporter"
	RoleDispatcher Role = "dispatcher"
	RoleFieldUnit  Role = "field_unit"
	RoleAdmin      Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleReporter, RoleDispatcher, RoleFieldUnit, RoleAdmin:
		return true
	}
	return false
}

// Actor - участник, от имени которого выполняется операция. Личность и роль
// приходят от внешнего провайдера идентификации и принимаются как есть.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

func (a Actor) String() string {
	return fmt.Sprintf("%s:%s", a.Role, a.ID)
}

// ParseActor собирает участника из заголовков провайдера идентификации
func ParseActor(id, role string) (Actor, error) {
	a := Actor{ID: strings.TrimSpace(id), Role: Role(strings.ToLower(strings.TrimSpace(role)))}
	if a.ID == "" {
		return Actor{}, fmt.Errorf("%w: actor id is required", ErrValidation)
	}
	if !a.Role.Valid() {
		return Actor{}, fmt.Errorf("%w: unknown actor role %q", ErrValidation, role)
	}
	return a, nil
}

// Can проверяет, входит ли роль участника в список разрешённых (admin - всегда)
func (a Actor) Can(roles ...Role) bool {
	if a.Role == RoleAdmin {
		return true
	}
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}
