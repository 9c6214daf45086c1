package policy

import "tenderportal/models"

// Guard защищает маршрут или экран.
type Guard int

const (
	// RequireLogin пропускает любого активного вошедшего пользователя.
	RequireLogin Guard = iota
	// RequireAdmin пропускает только активных администраторов.
	RequireAdmin
)

type RouteDecision int

const (
	RouteAllow RouteDecision = iota
	// RouteLogin: пользователь не определен, нужен вход.
	RouteLogin
	// RouteDenied: вход выполнен, но роли недостаточно.
	RouteDenied
)

// CheckRoute проверяет guard. nil-актор означает, что вход не выполнен.
func CheckRoute(a *Actor, g Guard) RouteDecision {
	if a == nil || !a.Active || a.Role == models.RoleSystem {
		return RouteLogin
	}
	if g == RequireAdmin && !a.IsAdmin() {
		return RouteDenied
	}
	return RouteAllow
}
