package httpkit

import (
	"slices"

	"github.com/gin-gonic/gin"
)

// Identity is the authenticated operator behind a request.
type Identity struct {
	OperatorID string
	Roles      []string
}

// HasRole reports whether the operator carries role.
func (i Identity) HasRole(role string) bool {
	return slices.Contains(i.Roles, role)
}

// IsAuthenticated reports whether AuthRequired populated the identity.
func (i Identity) IsAuthenticated() bool {
	return i.OperatorID != ""
}

// GetIdentity extracts the operator identity from a Gin context.
func GetIdentity(c *gin.Context) Identity {
	var id Identity
	if v, ok := c.Get(ContextOperatorIDKey); ok {
		id.OperatorID, _ = v.(string)
	}
	if v, ok := c.Get(ContextRolesKey); ok {
		id.Roles, _ = v.([]string)
	}
	return id
}
