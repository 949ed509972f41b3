package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/opssage/opssage/internal/models"
)

// UserStore keeps API accounts in the "users" collection.
type UserStore struct {
	collection *mongo.Collection
}

func NewUserStore(database *mongo.Database) *UserStore {
	return &UserStore{collection: database.Collection("users")}
}

// FindByUsername returns (nil, nil) when no account exists.
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var user models.User
	err := s.collection.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, &StorageError{Op: "find user", Err: err}
	}
	return &user, nil
}

func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.collection.InsertOne(ctx, user); err != nil {
		return &StorageError{Op: "create user", Err: err}
	}
	return nil
}
