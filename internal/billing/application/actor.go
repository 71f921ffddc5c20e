package application

import billing "rent-billing/internal/billing/domain"

// Role is the caller's role as seen by billing.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleTenant Role = "tenant"
	RoleAdmin  Role = "admin"
)

// Actor identifies the caller of a direct billing operation.
type Actor struct {
	UserID string
	Role   Role
}

func (a Actor) isAdmin() bool { return a.Role == RoleAdmin }

// canRead allows admins, the invoice owner and the invoice tenant.
func (a Actor) canRead(inv *billing.Invoice) bool {
	return a.isAdmin() || inv.CanBeAccessedBy(a.UserID)
}

// canManage allows admins and the invoice owner.
func (a Actor) canManage(inv *billing.Invoice) bool {
	return a.isAdmin() || (a.UserID != "" && inv.OwnerID == a.UserID)
}

// scope narrows a list filter to what the actor may see.
func (a Actor) scope(filter billing.InvoiceFilter) billing.InvoiceFilter {
	switch a.Role {
	case RoleAdmin:
	case RoleTenant:
		filter.TenantID = a.UserID
	default:
		filter.OwnerID = a.UserID
	}
	return filter
}
