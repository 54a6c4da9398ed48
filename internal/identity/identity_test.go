package identity

import (
	"context"
	"testing"
)

func TestActorRoundTrip(t *testing.T) {
	ctx := WithActor(context.Background(), Actor{ID: 42, Role: RoleAdmin})
	actor, ok := ActorFromContext(ctx)
	if !ok {
		t.Fatal("expected actor in context")
	}
	if actor.ID != 42 || actor.Role != RoleAdmin {
		t.Fatalf("unexpected actor: %+v", actor)
	}
}

func TestActorMissing(t *testing.T) {
	if _, ok := ActorFromContext(context.Background()); ok {
		t.Fatal("expected no actor in empty context")
	}
}

func TestIsAdmin(t *testing.T) {
	if (Actor{Role: RoleUser}).IsAdmin() {
		t.Fatal("user should not be admin")
	}
	if !(Actor{Role: RoleAdmin}).IsAdmin() {
		t.Fatal("admin role not recognized")
	}
}
