// Package model defines the buildledger domain types: users, projects,
// memberships, cost entries, contacts, documents, and milestones.
//
// Types carry their own validation (Validate methods with sentinel errors)
// and are shared between the store, the services, and the HTTP layer.
// Money is always integer cents; there are no floating-point amounts.
package model
