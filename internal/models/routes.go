package models

// Route identifies a client-side destination. The API does not serve these
// pages; it tells the client where to go after auth and workflow events.
type Route string

const (
	RouteLogin             Route = "/login"
	RouteRegister          Route = "/register"
	RouteStudentWelcome    Route = "/student/welcome"
	RouteStudentEnrollment Route = "/student/enrollment"
	RouteStudentDashboard  Route = "/student/dashboard"
	RouteAdminDashboard    Route = "/admin/dashboard"
)

// HomeRoute returns the landing route for a role, used when a signed-in
// user hits a page their role is not allowed to see.
func HomeRoute(role UserRole) Route {
	if role == RoleAdmin {
		return RouteAdminDashboard
	}
	return RouteStudentWelcome
}
