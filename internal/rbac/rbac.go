// Package rbac centralizes role and stack capability checks.
package rbac

type Role string
type Action string
type Stack string

const (
	RoleViewer    Role = "viewer"
	RoleMember    Role = "member"
	RoleDeveloper Role = "developer"
	RoleAdmin     Role = "admin"
)

const (
	ActionRead        Action = "read"
	ActionSuggest     Action = "suggest"
	ActionVote        Action = "vote"
	ActionPromote     Action = "promote"
	ActionManageTasks Action = "manage_tasks"
	ActionAdmin       Action = "admin"
)

const (
	StackFrontend Stack = "frontend"
	StackBackend  Stack = "backend"
	StackInfra    Stack = "infra"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleDeveloper:
		return action == ActionRead || action == ActionSuggest || action == ActionVote ||
			action == ActionPromote || action == ActionManageTasks
	case RoleMember:
		return action == ActionRead || action == ActionSuggest || action == ActionVote
	case RoleViewer:
		return action == ActionRead
	default:
		return false
	}
}

// CanTouchStack reports whether an actor may mutate a task tagged with stack.
// Admins bypass stack assignment; developers need the stack in their global
// assignment; no other role mutates tasks at all.
func CanTouchStack(role Role, assigned []Stack, stack Stack) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleDeveloper:
		for _, s := range assigned {
			if s == stack {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleViewer, RoleMember, RoleDeveloper, RoleAdmin:
		return Role(role)
	default:
		return RoleViewer
	}
}

func ValidStack(stack string) bool {
	switch Stack(stack) {
	case StackFrontend, StackBackend, StackInfra:
		return true
	default:
		return false
	}
}
