package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KhalilH786/GTManager-sub001/core/session"
	"github.com/KhalilH786/GTManager-sub001/services/identity/memidentity"
)

func TestAuthenticator_OnStateChange(t *testing.T) {
	provider := memidentity.New()
	id := provider.AddAccount(session.Identity{Email: "jane@goodtree.school"}, "pwd")
	auth := session.NewAuthenticator(provider)
	ctx := context.Background()

	var events []string
	unsub1 := auth.OnStateChange(func(_ context.Context, ev session.Event) error {
		events = append(events, "1:"+ev.Kind.String()+":"+ev.Identity.UID)
		return nil
	})
	errListener := errors.New("listener failed")
	unsub2 := auth.OnStateChange(func(_ context.Context, ev session.Event) error {
		events = append(events, "2:"+ev.Kind.String())
		return errListener
	})

	got, err := auth.SignInWithPassword(ctx, "jane@goodtree.school", "pwd")
	assert.Equal(t, errListener, err)
	assert.Equal(t, id, got)
	assert.Equal(t, []string{"1:signed_in:" + id.UID, "2:signed_in"}, events)

	unsub2()
	unsub2() // idempotent
	events = nil
	require.NoError(t, auth.SignOut(ctx, id))
	assert.Equal(t, []string{"1:signed_out:" + id.UID}, events)

	unsub1()
	events = nil
	_, err = auth.SignInWithPassword(ctx, "jane@goodtree.school", "pwd")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestAuthenticator_SignOut_anonymous(t *testing.T) {
	auth := session.NewAuthenticator(memidentity.New())

	var kinds []session.EventKind
	auth.OnStateChange(func(_ context.Context, ev session.Event) error {
		kinds = append(kinds, ev.Kind)
		return nil
	})

	// unknown uid: nothing to revoke, listeners still told
	require.NoError(t, auth.SignOut(context.Background(), session.Identity{}))
	assert.Equal(t, []session.EventKind{session.SignedOut}, kinds)
}
