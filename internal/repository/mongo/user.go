package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/auth-backend/internal/apperror"
	"github.com/sakif/auth-backend/internal/model"
	"github.com/sakif/auth-backend/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

type userDocument struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"`
	PersonalInfo personalInfoDocument `bson:"personal_info"`
	GoogleAuth   bool                 `bson:"google_auth"`
	JoinedAt     time.Time            `bson:"joinedAt"`
	UpdatedAt    time.Time            `bson:"updatedAt"`
}

type personalInfoDocument struct {
	Fullname   string `bson:"fullname"`
	Email      string `bson:"email"`
	Password   string `bson:"password,omitempty"`
	Username   string `bson:"username"`
	ProfileImg string `bson:"profile_img"`
}

func toDocument(u *model.User) userDocument {
	return userDocument{
		PersonalInfo: personalInfoDocument{
			Fullname:   u.PersonalInfo.Fullname,
			Email:      u.PersonalInfo.Email,
			Password:   u.PersonalInfo.Password,
			Username:   u.PersonalInfo.Username,
			ProfileImg: u.PersonalInfo.ProfileImg,
		},
		GoogleAuth: u.GoogleAuth,
		JoinedAt:   u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func (d *userDocument) toModel() *model.User {
	return &model.User{
		ID: d.ID.Hex(),
		PersonalInfo: model.PersonalInfo{
			Fullname:   d.PersonalInfo.Fullname,
			Email:      d.PersonalInfo.Email,
			Password:   d.PersonalInfo.Password,
			Username:   d.PersonalInfo.Username,
			ProfileImg: d.PersonalInfo.ProfileImg,
		},
		GoogleAuth: d.GoogleAuth,
		CreatedAt:  d.JoinedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func (db *DB) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var doc userDocument
	err := db.users.FindOne(ctx, bson.M{"personal_info.email": email}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("email", "Email not found")
		}
		return nil, fmt.Errorf("mongo: finding user by email: %w", err)
	}
	return doc.toModel(), nil
}

func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperror.NotFound("user", fmt.Sprintf("user not found with id %s", id))
	}

	var doc userDocument
	if err := db.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("user", fmt.Sprintf("user not found with id %s", id))
		}
		return nil, fmt.Errorf("mongo: getting user %s: %w", id, err)
	}
	return doc.toModel(), nil
}

func (db *DB) UsernameExists(ctx context.Context, username string) (bool, error) {
	n, err := db.users.CountDocuments(ctx,
		bson.M{"personal_info.username": username},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, fmt.Errorf("mongo: checking username %q: %w", username, err)
	}
	return n > 0, nil
}

func (db *DB) Save(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		return db.insert(ctx, user)
	}
	return db.update(ctx, user)
}

func (db *DB) insert(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	doc := toDocument(user)
	doc.ID = primitive.NewObjectID()
	doc.JoinedAt = now
	doc.UpdatedAt = now

	if _, err := db.users.InsertOne(ctx, doc); err != nil {
		if cerr := duplicateKey(err, user); cerr != nil {
			return cerr
		}
		return fmt.Errorf("mongo: inserting user: %w", err)
	}

	user.ID = doc.ID.Hex()
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// update $sets the public fields only; personal_info.password is left as stored.
func (db *DB) update(ctx context.Context, user *model.User) error {
	oid, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return apperror.NotFound("user", fmt.Sprintf("user not found with id %s", user.ID))
	}

	now := time.Now().UTC()
	res, err := db.users.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"personal_info.fullname":    user.PersonalInfo.Fullname,
		"personal_info.email":       user.PersonalInfo.Email,
		"personal_info.username":    user.PersonalInfo.Username,
		"personal_info.profile_img": user.PersonalInfo.ProfileImg,
		"google_auth":               user.GoogleAuth,
		"updatedAt":                 now,
	}})
	if err != nil {
		if cerr := duplicateKey(err, user); cerr != nil {
			return cerr
		}
		return fmt.Errorf("mongo: updating user %s: %w", user.ID, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("user", fmt.Sprintf("user not found with id %s", user.ID))
	}

	user.UpdatedAt = now
	return nil
}

// duplicateKey maps an E11000 write error to apperror.Conflict, naming the
// field from the violated index. Returns nil for any other error.
func duplicateKey(err error, user *model.User) error {
	if !mongo.IsDuplicateKeyError(err) {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, usernameIndexName), strings.Contains(msg, "personal_info.username"):
		return apperror.Conflict("username", user.PersonalInfo.Username)
	default:
		return apperror.Conflict("email", user.PersonalInfo.Email)
	}
}
