package main

import (
	"github.com/gofrs/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ UIDHandler = (*IDsHandler)(nil) // ensure IDsHandler implements UIDHandler.

// UIDHandler generates and checks book identifiers.
type UIDHandler interface {
	Generate() string
	IsValid(id string) bool
}

// IDsHandler implements the UIDHandler interface. Book ids are
// ObjectIDs in their 24 hex characters form whatever the storage.
type IDsHandler struct{}

// NewIDsHandler returns a ready to use IDsHandler.
func NewIDsHandler() *IDsHandler {
	return &IDsHandler{}
}

// Generate provides a new unique book identifier.
func (idh *IDsHandler) Generate() string {
	return primitive.NewObjectID().Hex()
}

// IsValid checks if a given string is a well-formed book identifier.
func (idh *IDsHandler) IsValid(id string) bool {
	oid, err := primitive.ObjectIDFromHex(id)
	return err == nil && oid.Hex() == id
}

// GenerateID provides a random uid with the given prefix.
func GenerateID(prefix string) string {
	id, _ := uuid.NewV4()
	return prefix + ":" + id.String()
}
