// AngelaMos | 2026
// access.go

package user

import (
	"github.com/acquisitions/api/internal/core"
)

// AccessController decides whether a caller may mutate a user record.
// It never consults the store, so a missing target only surfaces once the
// mutation itself runs.
type AccessController struct{}

// Action names the mutation being authorized.
type Action string

const (
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

func NewAccessController() *AccessController {
	return &AccessController{}
}

func (a *AccessController) CanMutate(
	requester core.Identity,
	targetID int64,
	action Action,
) error {
	if requester.IsAdmin() || requester.ID == targetID {
		return nil
	}
	return core.ForbiddenError("You can only " + string(action) + " your own account")
}

func (a *AccessController) CanChangeRole(requester core.Identity) error {
	if requester.IsAdmin() {
		return nil
	}
	return core.ForbiddenError("Only admins can change user roles")
}

// AuthorizeUpdate expects req to have passed field validation. An empty
// update is rejected before any permission check.
func (a *AccessController) AuthorizeUpdate(
	requester core.Identity,
	targetID int64,
	req UpdateUserRequest,
) error {
	if !req.HasChanges() {
		return core.ValidationError([]core.FieldError{{
			Field:   "_",
			Message: "At least one field (name, email, password, role) must be provided",
		}})
	}

	if err := a.CanMutate(requester, targetID, ActionUpdate); err != nil {
		return err
	}

	if req.Role != nil {
		return a.CanChangeRole(requester)
	}

	return nil
}
