package directory

import (
	"context"
	"errors"
	"testing"

	"schoolattendance/internal/auth"
	"schoolattendance/internal/store/storetest"
)

func TestStudents(t *testing.T) {
	db := storetest.Open(t)
	svc := NewService(NewRepository(db.Client))
	ctx := context.Background()

	asha, err := svc.CreateStudent(ctx, NewStudent{Name: "Asha", RollNumber: "R1", Class: "5A"})
	if err != nil {
		t.Fatalf("CreateStudent failed: %v", err)
	}
	if asha.ID == 0 || asha.CreatedAt.IsZero() {
		t.Fatalf("expected generated id and created_at, got %+v", asha)
	}
	if _, err := svc.CreateStudent(ctx, NewStudent{Name: "Ben", RollNumber: "R2", Class: "4B"}); err != nil {
		t.Fatalf("CreateStudent failed: %v", err)
	}

	t.Run("duplicate roll number is rejected without insert", func(t *testing.T) {
		_, err := svc.CreateStudent(ctx, NewStudent{Name: "Other", RollNumber: "R1", Class: "5A"})
		if !errors.Is(err, ErrRollNumberExists) {
			t.Fatalf("expected ErrRollNumberExists, got %v", err)
		}
		all, err := svc.ListStudents(ctx, "")
		if err != nil {
			t.Fatalf("ListStudents failed: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("expected 2 students, got %d", len(all))
		}
	})

	t.Run("missing fields are rejected", func(t *testing.T) {
		if _, err := svc.CreateStudent(ctx, NewStudent{Name: "  ", RollNumber: "R9", Class: "5A"}); !errors.Is(err, ErrMissingField) {
			t.Fatalf("expected ErrMissingField, got %v", err)
		}
	})

	t.Run("list is ordered by class and filterable", func(t *testing.T) {
		all, err := svc.ListStudents(ctx, "")
		if err != nil {
			t.Fatalf("ListStudents failed: %v", err)
		}
		if all[0].Class != "4B" || all[1].Class != "5A" {
			t.Fatalf("unexpected order: %+v", all)
		}
		only, err := svc.ListStudents(ctx, "5A")
		if err != nil {
			t.Fatalf("ListStudents failed: %v", err)
		}
		if len(only) != 1 {
			t.Fatalf("expected one student in 5A, got %+v", only)
		}
		got := only[0]
		if got.ID != asha.ID || got.Name != "Asha" || got.RollNumber != "R1" || got.Class != "5A" || !got.CreatedAt.Equal(asha.CreatedAt) {
			t.Fatalf("expected Asha unchanged, got %+v", got)
		}
	})

	t.Run("classes are derived from students", func(t *testing.T) {
		classes, err := svc.ListClasses(ctx)
		if err != nil {
			t.Fatalf("ListClasses failed: %v", err)
		}
		if len(classes) != 2 || classes[0] != "4B" || classes[1] != "5A" {
			t.Fatalf("unexpected classes %v", classes)
		}
	})

	t.Run("delete removes the student and tolerates unknown ids", func(t *testing.T) {
		if err := svc.DeleteStudent(ctx, asha.ID); err != nil {
			t.Fatalf("DeleteStudent failed: %v", err)
		}
		if err := svc.DeleteStudent(ctx, 999999); err != nil {
			t.Fatalf("DeleteStudent on unknown id failed: %v", err)
		}
		left, err := svc.ListStudents(ctx, "5A")
		if err != nil {
			t.Fatalf("ListStudents failed: %v", err)
		}
		if len(left) != 0 {
			t.Fatalf("expected class 5A to be empty, got %+v", left)
		}
	})

	t.Run("fields are stored exactly as submitted", func(t *testing.T) {
		padded, err := svc.CreateStudent(ctx, NewStudent{Name: " Cara", RollNumber: "R2 ", Class: "4B "})
		if err != nil {
			t.Fatalf("R2 and R2 with a trailing space are distinct roll numbers: %v", err)
		}
		if padded.Name != " Cara" || padded.RollNumber != "R2 " || padded.Class != "4B " {
			t.Fatalf("expected untouched fields, got %+v", padded)
		}
		only, err := svc.ListStudents(ctx, "4B ")
		if err != nil {
			t.Fatalf("ListStudents failed: %v", err)
		}
		if len(only) != 1 || only[0].RollNumber != "R2 " {
			t.Fatalf("expected the padded student alone in its class, got %+v", only)
		}
	})
}

func TestUsers(t *testing.T) {
	db := storetest.Open(t)
	repo := NewRepository(db.Client)
	svc := NewService(repo)
	ctx := context.Background()

	teacher, err := svc.CreateUser(ctx, NewUser{Username: "mrs.k", Password: "chalk", Role: auth.RoleTeacher})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if _, err := svc.CreateUser(ctx, NewUser{Username: "mrs.k", Password: "x", Role: auth.RoleTeacher}); !errors.Is(err, ErrUsernameExists) {
		t.Fatalf("expected ErrUsernameExists, got %v", err)
	}
	if _, err := svc.CreateUser(ctx, NewUser{Username: "kid", Password: "x", Role: "student"}); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}

	users, err := svc.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 2 || users[0].Role != auth.RoleAdmin || users[1].Username != "mrs.k" {
		t.Fatalf("expected admin then teacher, got %+v", users)
	}

	creds, err := repo.CredentialsByUsername(ctx, "mrs.k")
	if err != nil || creds == nil {
		t.Fatalf("CredentialsByUsername failed: %v", err)
	}
	if creds.PasswordHash == "chalk" || auth.CheckPassword(creds.PasswordHash, "chalk") != nil {
		t.Fatalf("expected stored bcrypt hash of the password")
	}
	if missing, err := repo.CredentialsByUsername(ctx, "ghost"); err != nil || missing != nil {
		t.Fatalf("expected nil credentials for unknown user, got %+v, %v", missing, err)
	}

	role, ok, err := repo.UserRole(ctx, teacher.ID)
	if err != nil || !ok || role != auth.RoleTeacher {
		t.Fatalf("UserRole = %q, %v, %v", role, ok, err)
	}

	if err := svc.DeleteUser(ctx, teacher.ID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if _, ok, err := repo.UserRole(ctx, teacher.ID); err != nil || ok {
		t.Fatalf("expected deleted user to be gone, ok=%v err=%v", ok, err)
	}
}
