package model

// Operation names a role-gated action of the marketplace.
type Operation string

const (
	OpCreateProject     Operation = "project.create"
	OpListOpenProjects  Operation = "project.list_open"
	OpListAssigned      Operation = "project.list_assigned"
	OpAssignSeller      Operation = "project.assign"
	OpDeleteProject     Operation = "project.delete"
	OpViewHistory       Operation = "project.history"
	OpPlaceBid          Operation = "bid.place"
	OpListOwnBids       Operation = "bid.list_own"
	OpListProjectBids   Operation = "bid.list_project"
	OpViewBidDetails    Operation = "bid.project_details"
	OpUploadDeliverable Operation = "deliverable.upload"
	OpViewDeliverable   Operation = "deliverable.view"
)

// Capabilities is the single source of truth for which role may perform
// which operation. Operations absent from the table only need a verified
// identity.
var Capabilities = map[Operation]Role{
	OpCreateProject:     RoleBuyer,
	OpAssignSeller:      RoleBuyer,
	OpDeleteProject:     RoleBuyer,
	OpViewHistory:       RoleBuyer,
	OpListProjectBids:   RoleBuyer,
	OpViewDeliverable:   RoleBuyer,
	OpListOpenProjects:  RoleSeller,
	OpListAssigned:      RoleSeller,
	OpPlaceBid:          RoleSeller,
	OpListOwnBids:       RoleSeller,
	OpViewBidDetails:    RoleSeller,
	OpUploadDeliverable: RoleSeller,
}

func (r Role) Can(op Operation) bool {
	required, gated := Capabilities[op]
	if !gated {
		return r == RoleBuyer || r == RoleSeller
	}
	return r == required
}

func RequiredRole(op Operation) (Role, bool) {
	role, ok := Capabilities[op]
	return role, ok
}
