package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/todoapp/todo-api/internal/model"
)

// MongoTodoRepository persists todos as documents.
type MongoTodoRepository struct {
	coll *mongo.Collection
}

// NewMongoTodoRepository creates a new MongoTodoRepository.
func NewMongoTodoRepository(db *mongo.Database) *MongoTodoRepository {
	return &MongoTodoRepository{coll: db.Collection(todosCollection)}
}

func (r *MongoTodoRepository) Create(ctx context.Context, todo *model.Todo) error {
	todo.ID = primitive.NewObjectID()
	_, err := r.coll.InsertOne(ctx, todo)
	return err
}

func (r *MongoTodoRepository) ListByCreator(ctx context.Context, creator primitive.ObjectID) ([]model.Todo, error) {
	cur, err := r.coll.Find(ctx, bson.M{"_creator": creator}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}

	todos := []model.Todo{}
	if err := cur.All(ctx, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

func (r *MongoTodoRepository) GetByID(ctx context.Context, id, creator primitive.ObjectID) (*model.Todo, error) {
	return decodeTodo(r.coll.FindOne(ctx, ownedFilter(id, creator)))
}

func (r *MongoTodoRepository) Delete(ctx context.Context, id, creator primitive.ObjectID) (*model.Todo, error) {
	return decodeTodo(r.coll.FindOneAndDelete(ctx, ownedFilter(id, creator)))
}

// Update sets the patched fields and unsets completedAt when the patch clears it.
func (r *MongoTodoRepository) Update(ctx context.Context, id, creator primitive.ObjectID, patch model.TodoPatch) (*model.Todo, error) {
	set := bson.M{"completed": patch.Completed}
	if patch.Text != nil {
		set["text"] = *patch.Text
	}

	update := bson.M{"$set": set}
	if patch.CompletedAt != nil {
		set["completedAt"] = *patch.CompletedAt
	} else {
		update["$unset"] = bson.M{"completedAt": ""}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return decodeTodo(r.coll.FindOneAndUpdate(ctx, ownedFilter(id, creator), update, opts))
}

func ownedFilter(id, creator primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "_creator": creator}
}

func decodeTodo(res *mongo.SingleResult) (*model.Todo, error) {
	todo := &model.Todo{}
	if err := res.Decode(todo); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTodoNotFound
		}
		return nil, err
	}
	return todo, nil
}
