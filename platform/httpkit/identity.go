// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// Identity represents the authenticated caller.
// This interface abstracts identity extraction from the web framework,
// allowing handlers and services to consume the caller's subject and role
// without depending on Gin. The core trusts the identity as given.
type Identity interface {
	// Subject returns the authenticated caller's name (JWT sub / username).
	Subject() string
	// Role returns the caller's role (admin, builder, ...).
	Role() string
	// HasRole checks if the caller has a specific role.
	HasRole(role string) bool
	// IsAuthenticated returns true if the caller is authenticated.
	IsAuthenticated() bool
}

// identity is the concrete implementation of Identity.
type identity struct {
	subject       string
	role          string
	authenticated bool
}

func (i *identity) Subject() string {
	return i.subject
}

func (i *identity) Role() string {
	return i.role
}

func (i *identity) HasRole(role string) bool {
	return strings.EqualFold(i.role, role)
}

func (i *identity) IsAuthenticated() bool {
	return i.authenticated
}

// Anonymous returns an unauthenticated identity.
func Anonymous() Identity {
	return &identity{}
}

// APIKeyIdentity returns the synthetic identity used for requests
// authenticated via the form-submission API key (the Apps Script caller).
func APIKeyIdentity() Identity {
	return &identity{subject: "apps-script", role: "integration", authenticated: true}
}

// GetIdentity extracts the Identity from a Gin context.
// Returns an unauthenticated identity if caller info is not present.
func GetIdentity(c *gin.Context) Identity {
	subjectRaw, subjectOK := c.Get(ContextSubjectKey)
	if !subjectOK {
		return Anonymous()
	}

	subject, ok := subjectRaw.(string)
	if !ok || subject == "" {
		return Anonymous()
	}

	role := ""
	if roleRaw, roleOK := c.Get(ContextRoleKey); roleOK {
		role, _ = roleRaw.(string)
	}

	return &identity{subject: subject, role: role, authenticated: true}
}
