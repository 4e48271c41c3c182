// Пакет rbac — роли SIGID и логика определения роли пользователя.
// Роль приходит из двух источников: группы Keycloak и локальный профиль.
// Локальный профиль (таблица usuarios) имеет приоритет, так как роль
// в нём назначает администратор.
package rbac

import "strings"

// Роли в порядке возрастания привилегий.
const (
	RolePromoter   = "Promotor"
	RoleSupervisor = "Supervisor"
	RoleAdmin      = "Administrador"
)

// roleWeight — вес роли для сравнения.
// Чем выше вес, тем больше привилегий.
var roleWeight = map[string]int{
	RolePromoter:   1,
	RoleSupervisor: 2,
	RoleAdmin:      3,
}

// roleAliases — допустимые написания ролей во внешних запросах.
var roleAliases = map[string]string{
	"administrador": RoleAdmin,
	"admin":         RoleAdmin,
	"supervisor":    RoleSupervisor,
	"promotor":      RolePromoter,
	"promoter":      RolePromoter,
}

// GroupMapping — группы Keycloak, соответствующие каждой роли.
type GroupMapping struct {
	Admin      []string
	Supervisor []string
	Promoter   []string
}

// ParseRole приводит написание роли к каноническому виду.
// Регистр не учитывается. Второй результат false, если роль неизвестна.
func ParseRole(s string) (string, bool) {
	role, ok := roleAliases[strings.ToLower(strings.TrimSpace(s))]
	return role, ok
}

// EffectiveRole вычисляет итоговую роль.
// Если задан профиль, используется роль профиля, иначе роль из IdP.
func EffectiveRole(idpRole string, profileRole *string) string {
	if profileRole != nil && IsValidRole(*profileRole) {
		return *profileRole
	}
	return idpRole
}

// maxRole возвращает роль с максимальными привилегиями из двух.
func maxRole(a, b string) string {
	if roleWeight[a] >= roleWeight[b] {
		return a
	}
	return b
}

// HighestRole возвращает максимальную роль из набора.
// Если набор пуст — возвращает пустую строку.
func HighestRole(roles []string) string {
	if len(roles) == 0 {
		return ""
	}
	highest := roles[0]
	for _, r := range roles[1:] {
		highest = maxRole(highest, r)
	}
	return highest
}

// MapGroupsToRole определяет роль пользователя на основе его групп IdP.
// Возвращает максимальную роль из всех совпадений.
// Если ни одна группа не совпала — возвращает пустую строку.
func MapGroupsToRole(groups []string, mapping GroupMapping) string {
	adminSet := toSet(mapping.Admin)
	supervisorSet := toSet(mapping.Supervisor)
	promoterSet := toSet(mapping.Promoter)

	var roles []string
	for _, g := range groups {
		// Keycloak возвращает путь группы с ведущим "/"
		g = strings.TrimPrefix(g, "/")
		if adminSet[g] {
			roles = append(roles, RoleAdmin)
		}
		if supervisorSet[g] {
			roles = append(roles, RoleSupervisor)
		}
		if promoterSet[g] {
			roles = append(roles, RolePromoter)
		}
	}

	return HighestRole(roles)
}

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	_, ok := roleWeight[role]
	return ok
}

// HomePath возвращает путь панели для роли.
func HomePath(role string) string {
	switch role {
	case RoleAdmin:
		return "/admin"
	case RoleSupervisor:
		return "/supervisor"
	case RolePromoter:
		return "/promotor"
	default:
		return "/"
	}
}

// toSet конвертирует срез строк в map для быстрого поиска.
func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, item := range items {
		s[item] = true
	}
	return s
}
