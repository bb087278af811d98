package dbfill_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/vvka-141/dbfill/pkg/dbfill"
)

func TestExitCodeForError(t *testing.T) {
	conflict := &dbfill.ConflictRelationError{
		Source: dbfill.TypeRef{Group: "blog", Type: "post"},
		Field:  "author",
		Target: dbfill.TypeRef{Group: "blog_auth", Type: "author"},
		Reason: "target is excluded",
	}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, dbfill.ExitSuccess},
		{"general error", errors.New("something went wrong"), dbfill.ExitGeneralError},
		{"unknown flag", errors.New("unknown flag --foo"), dbfill.ExitUsageError},
		{"accepts args", errors.New("accepts 1 arg(s), received 0"), dbfill.ExitUsageError},
		{"invalid config sentinel", dbfill.ErrInvalidConfig, dbfill.ExitConfigError},
		{"invalid config type", &dbfill.InvalidConfigError{Key: "apps_exclude", Reason: "must be a list"}, dbfill.ExitConfigError},
		{"wrapped conflict", fmt.Errorf("parse: %w", conflict), dbfill.ExitRelationConflict},
		{"registry", fmt.Errorf("load: %w", dbfill.ErrRegistry), dbfill.ExitRegistryError},
		{"connection failed", dbfill.ErrConnectionFailed, dbfill.ExitConnectionError},
		{"connection refused text", errors.New("dial tcp: connection refused"), dbfill.ExitConnectionError},
		{"unsupported auth", dbfill.ErrUnsupportedAuthMethod, dbfill.ExitConfigError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dbfill.ExitCodeForError(tt.err); got != tt.want {
				t.Errorf("ExitCodeForError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestConflictRelationError_Message(t *testing.T) {
	err := &dbfill.ConflictRelationError{
		Source: dbfill.TypeRef{Group: "blog", Type: "post"},
		Field:  "author",
		Target: dbfill.TypeRef{Group: "blog_auth", Type: "author"},
		Reason: "target is excluded",
	}

	msg := err.Error()
	for _, want := range []string{"blog.post", `"author"`, "blog_auth.author", "target is excluded"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q does not mention %q", msg, want)
		}
	}
	if !errors.Is(err, dbfill.ErrConflictRelation) {
		t.Error("ConflictRelationError should match ErrConflictRelation")
	}
}

func TestParseTypeRef(t *testing.T) {
	ref, err := dbfill.ParseTypeRef("auth.user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Group != "auth" || ref.Type != "user" {
		t.Errorf("got %+v", ref)
	}

	ref, err = dbfill.ParseTypeRef("my.app.model")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Group != "my.app" || ref.Type != "model" {
		t.Errorf("got %+v", ref)
	}

	for _, bad := range []string{"", "user", ".user", "auth."} {
		if _, err := dbfill.ParseTypeRef(bad); err == nil {
			t.Errorf("ParseTypeRef(%q) should fail", bad)
		}
	}
}
