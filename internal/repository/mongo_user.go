package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/todoapp/todo-api/internal/model"
)

// MongoUserRepository persists users as documents with an embedded token list.
type MongoUserRepository struct {
	coll *mongo.Collection
}

// NewMongoUserRepository creates a new MongoUserRepository.
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection(usersCollection)}
}

// Create inserts a new user document. Email uniqueness is enforced by the unique index.
func (r *MongoUserRepository) Create(ctx context.Context, user *model.User) error {
	user.ID = primitive.NewObjectID()
	if user.Tokens == nil {
		user.Tokens = []model.Token{}
	}

	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// GetByEmail retrieves a user by their email address.
func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// GetByID retrieves a user by their ID.
func (r *MongoUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetByToken retrieves the user with the given ID only if its token list holds
// an entry matching both access and token.
func (r *MongoUserRepository) GetByToken(ctx context.Context, id primitive.ObjectID, access, token string) (*model.User, error) {
	return r.findOne(ctx, bson.M{
		"_id": id,
		"tokens": bson.M{"$elemMatch": bson.M{
			"access": access,
			"token":  token,
		}},
	})
}

// AddToken pushes a token onto the user's token list in one atomic update.
func (r *MongoUserRepository) AddToken(ctx context.Context, id primitive.ObjectID, token model.Token) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$push": bson.M{"tokens": token}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// RemoveToken pulls every entry matching token from the user's token list.
func (r *MongoUserRepository) RemoveToken(ctx context.Context, id primitive.ObjectID, token string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$pull": bson.M{"tokens": bson.M{"token": token}}},
	)
	return err
}

// Delete removes the user document.
func (r *MongoUserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	user := &model.User{}
	if err := r.coll.FindOne(ctx, filter).Decode(user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
