// Package mongo implements repository.UserRepository on MongoDB, storing one
// document per user in the "users" collection:
//
//	{
//	  "_id": ObjectId,
//	  "personal_info": {"fullname", "email", "password"?, "username", "profile_img"},
//	  "google_auth": bool,
//	  "joinedAt": date, "updatedAt": date
//	}
//
// Unique indexes on personal_info.email and personal_info.username are created
// at startup; duplicate-key write errors (code 11000) become apperror.Conflict.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection   = "users"
	emailIndexName    = "email_unique"
	usernameIndexName = "username_unique"
)

type DB struct {
	client *mongo.Client
	users  *mongo.Collection
}

// New connects to uri, verifies the connection and ensures the indexes exist.
func New(ctx context.Context, uri, database string) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connecting: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: pinging: %w", err)
	}

	db := &DB{
		client: client,
		users:  client.Database(database).Collection(usersCollection),
	}

	if err := db.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: creating indexes: %w", err)
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.client.Disconnect(context.Background())
}

func (db *DB) ensureIndexes(ctx context.Context) error {
	_, err := db.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "personal_info.email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(emailIndexName),
		},
		{
			Keys:    bson.D{{Key: "personal_info.username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(usernameIndexName),
		},
	})
	return err
}
