package model

import "go.mongodb.org/mongo-driver/bson/primitive"

// Todo represents a todo document owned by a user.
// CompletedAt is epoch milliseconds and is set only while Completed is true.
type Todo struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Text        string             `bson:"text" json:"text"`
	Completed   bool               `bson:"completed" json:"completed"`
	CompletedAt *int64             `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	Creator     primitive.ObjectID `bson:"_creator" json:"_creator"`
}

// CreateTodoRequest is the body of POST /todos.
type CreateTodoRequest struct {
	Text string `json:"text" validate:"required"`
}

// UpdateTodoRequest is the body of PATCH /todos/{id}. Fields other than
// text and completed are ignored by the decoder.
type UpdateTodoRequest struct {
	Text      *string `json:"text"`
	Completed *bool   `json:"completed"`
}

// TodoPatch is the resolved change applied by a store.
// A nil CompletedAt clears the stored timestamp.
type TodoPatch struct {
	Text        *string
	Completed   bool
	CompletedAt *int64
}

// TodoResponse wraps a single todo.
type TodoResponse struct {
	Todo Todo `json:"todo"`
}

// TodoListResponse wraps a list of todos.
type TodoListResponse struct {
	Todos []Todo `json:"todos"`
}
