package store

import "go.mongodb.org/mongo-driver/bson/primitive"

// NewID returns a fresh identifier. Identifiers are hex-encoded ObjectIDs for
// every backend.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// ParseID returns ErrInvalidID unless id is a well-formed identifier.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return oid, nil
}

func ValidID(id string) bool {
	_, err := ParseID(id)
	return err == nil
}
