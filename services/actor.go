package services

import "github.com/Govind-619/MemberSphere/utils"

// Role tells which surface a request came from
type Role string

const (
	RoleConsumer Role = "CONSUMER"
	RoleAdmin    Role = "ADMIN"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleConsumer || r == RoleAdmin
}

// Actor identifies who triggered an operation. Operations shared by both
// surfaces take an Actor instead of being duplicated; only the reported
// codes differ.
type Actor struct {
	Role Role   `json:"role"`
	ID   string `json:"id"`
}

// Consumer returns the actor for an end user
func Consumer(userID string) Actor {
	return Actor{Role: RoleConsumer, ID: userID}
}

// Admin returns the actor for an administrator
func Admin(adminID string) Actor {
	return Actor{Role: RoleAdmin, ID: adminID}
}

// Code scopes key to the actor's surface, e.g. membership.subscription_canceled
// for a consumer and membership_admin.subscription_canceled for an admin.
func (a Actor) Code(domain, key string) string {
	if a.Role == RoleAdmin {
		return domain + "_admin." + key
	}
	return domain + "." + key
}

// noActiveSubscription picks the failure reported when there is nothing to cancel
func (a Actor) noActiveSubscription() *utils.AppError {
	if a.Role == RoleAdmin {
		return ErrAdminNoActiveSubscription
	}
	return ErrNoActiveSubscription
}
