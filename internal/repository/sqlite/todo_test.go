package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/todo-service/internal/apperror"
	"github.com/sakif/todo-service/internal/model"
	"github.com/sakif/todo-service/internal/repository"
)

func createTestTodo(t *testing.T, db *DB, ownerID int64, title string) *model.Todo {
	t.Helper()
	todo := &model.Todo{
		Title:       title,
		Description: "description of " + title,
		Priority:    3,
		OwnerID:     ownerID,
	}
	if err := db.Todos().Create(context.Background(), todo); err != nil {
		t.Fatalf("failed to create test todo: %v", err)
	}
	return todo
}

// =========================================================================
// CREATE / GET TESTS
// =========================================================================

func TestTodoCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice", model.RoleUser)

	created := createTestTodo(t, db, alice.ID, "buy milk")
	if created.ID <= 0 {
		t.Fatalf("Create() set ID = %d, want positive", created.ID)
	}

	found, err := db.Todos().GetByID(context.Background(), created.ID, repository.OwnedBy(alice.ID))
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Title != "buy milk" || found.Priority != 3 || found.Complete || found.OwnerID != alice.ID {
		t.Errorf("GetByID() = %+v", found)
	}
}

func TestTodoCreate_UnknownOwner(t *testing.T) {
	db := newTestDB(t)

	err := db.Todos().Create(context.Background(), &model.Todo{Title: "orphan", Description: "x", Priority: 1, OwnerID: 77})
	if err == nil {
		t.Fatal("Create() should fail when owner does not exist")
	}
}

func TestTodoGetByID_OwnerScope(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice", model.RoleUser)
	bob := createTestUser(t, db, "bob", model.RoleUser)
	todo := createTestTodo(t, db, alice.ID, "alice's")

	tests := []struct {
		name    string
		filter  repository.TodoFilter
		wantErr error
	}{
		{"owner sees it", repository.OwnedBy(alice.ID), nil},
		{"unscoped sees it", repository.TodoFilter{}, nil},
		{"other user does not", repository.OwnedBy(bob.ID), apperror.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Todos().GetByID(context.Background(), todo.ID, tt.filter)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("GetByID() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("GetByID() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestTodoList(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice", model.RoleUser)
	bob := createTestUser(t, db, "bob", model.RoleUser)
	createTestTodo(t, db, alice.ID, "a1")
	createTestTodo(t, db, bob.ID, "b1")
	createTestTodo(t, db, alice.ID, "a2")
	ctx := context.Background()

	mine, err := db.Todos().List(ctx, repository.OwnedBy(alice.ID), repository.ListOptions{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("List(alice) returned %d todos, want 2", len(mine))
	}
	for _, td := range mine {
		if td.OwnerID != alice.ID {
			t.Errorf("List(alice) leaked todo %+v", td)
		}
	}

	all, err := db.Todos().List(ctx, repository.TodoFilter{}, repository.ListOptions{})
	if err != nil {
		t.Fatalf("List() unscoped error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("List() unscoped returned %d todos, want 3", len(all))
	}
}

func TestTodoList_EmptyIsNotNil(t *testing.T) {
	db := newTestDB(t)
	carol := createTestUser(t, db, "carol", model.RoleUser)

	todos, err := db.Todos().List(context.Background(), repository.OwnedBy(carol.ID), repository.ListOptions{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if todos == nil {
		t.Error("List() returned nil, want empty slice")
	}
}

// =========================================================================
// UPDATE / DELETE TESTS
// =========================================================================

func TestTodoUpdate(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice", model.RoleUser)
	bob := createTestUser(t, db, "bob", model.RoleUser)
	todo := createTestTodo(t, db, alice.ID, "draft")

	todo.Title = "final"
	todo.Complete = true
	todo.OwnerID = bob.ID // must be ignored
	if err := db.Todos().Update(context.Background(), todo); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	found, err := db.Todos().GetByID(context.Background(), todo.ID, repository.TodoFilter{})
	if err != nil {
		t.Fatalf("GetByID() after update: %v", err)
	}
	if found.Title != "final" || !found.Complete {
		t.Errorf("Update() not persisted: %+v", found)
	}
	if found.OwnerID != alice.ID {
		t.Errorf("OwnerID = %d, want %d (owner is immutable)", found.OwnerID, alice.ID)
	}
}

func TestTodoUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Todos().Update(context.Background(), &model.Todo{ID: 555, Title: "x", Description: "y", Priority: 1})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestTodoDelete(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice", model.RoleUser)
	bob := createTestUser(t, db, "bob", model.RoleUser)
	todo := createTestTodo(t, db, alice.ID, "to delete")
	ctx := context.Background()

	if err := db.Todos().Delete(ctx, todo.ID, repository.OwnedBy(bob.ID)); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("Delete() by non-owner error = %v, want ErrNotFound", err)
	}
	if _, err := db.Todos().GetByID(ctx, todo.ID, repository.TodoFilter{}); err != nil {
		t.Fatalf("todo should survive a non-owner delete: %v", err)
	}

	if err := db.Todos().Delete(ctx, todo.ID, repository.OwnedBy(alice.ID)); err != nil {
		t.Fatalf("Delete() by owner error = %v", err)
	}
	if _, err := db.Todos().GetByID(ctx, todo.ID, repository.TodoFilter{}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}

	if err := db.Todos().Delete(ctx, todo.ID, repository.TodoFilter{}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestClampList(t *testing.T) {
	tests := []struct {
		in         repository.ListOptions
		wantLimit  int
		wantOffset int
	}{
		{repository.ListOptions{}, defaultListLimit, 0},
		{repository.ListOptions{Limit: 10, Offset: 5}, 10, 5},
		{repository.ListOptions{Limit: 10000}, maxListLimit, 0},
		{repository.ListOptions{Limit: -1, Offset: -3}, defaultListLimit, 0},
	}
	for _, tt := range tests {
		limit, offset := clampList(tt.in)
		if limit != tt.wantLimit || offset != tt.wantOffset {
			t.Errorf("clampList(%+v) = (%d, %d), want (%d, %d)", tt.in, limit, offset, tt.wantLimit, tt.wantOffset)
		}
	}
}
