package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vistachat/vistachat/internal/model"
	"github.com/vistachat/vistachat/internal/repository"
	"github.com/vistachat/vistachat/internal/testutil"
)

func TestStore_CreateAndGetAccount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore()
	acct := testutil.NewTestAccount(t)

	if err := s.CreateAccount(ctx, acct); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	for name, get := range map[string]func() (*model.Account, error){
		"id":       func() (*model.Account, error) { return s.GetAccountByID(ctx, acct.ID) },
		"email":    func() (*model.Account, error) { return s.GetAccountByEmail(ctx, acct.Email) },
		"username": func() (*model.Account, error) { return s.GetAccountByUsername(ctx, acct.Username) },
	} {
		got, err := get()
		if err != nil {
			t.Fatalf("get by %s failed: %v", name, err)
		}
		if got.ID != acct.ID {
			t.Errorf("get by %s: got id %q, want %q", name, got.ID, acct.ID)
		}
	}

	if _, err := s.GetAccountByID(ctx, "missing"); !errors.Is(err, repository.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestStore_DuplicateAccount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore()
	first := testutil.NewTestAccount(t)
	if err := s.CreateAccount(ctx, first); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	dupEmail := testutil.NewTestAccount(t)
	dupEmail.Email = first.Email
	if err := s.CreateAccount(ctx, dupEmail); !errors.Is(err, repository.ErrEmailExists) {
		t.Errorf("expected ErrEmailExists, got %v", err)
	}

	dupUser := testutil.NewTestAccount(t)
	dupUser.Username = first.Username
	if err := s.CreateAccount(ctx, dupUser); !errors.Is(err, repository.ErrUsernameExists) {
		t.Errorf("expected ErrUsernameExists, got %v", err)
	}
}

func TestStore_DeleteAccount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore()
	acct := testutil.NewTestAccount(t)
	_ = s.CreateAccount(ctx, acct)

	if err := s.DeleteAccount(ctx, acct.ID); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}
	if _, err := s.GetAccountByID(ctx, acct.ID); !errors.Is(err, repository.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound after delete, got %v", err)
	}
	if err := s.DeleteAccount(ctx, acct.ID); !errors.Is(err, repository.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound on second delete, got %v", err)
	}
}

func TestStore_ListInteractionsByAccount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore()
	base := time.Now()

	// Inserted out of order on purpose.
	offsets := []int{3, 0, 4, 1, 2}
	for _, off := range offsets {
		rec := testutil.NewTestInteraction(t, "acct-1", base.Add(time.Duration(off)*time.Second))
		if err := s.AppendInteraction(ctx, rec); err != nil {
			t.Fatalf("AppendInteraction failed: %v", err)
		}
	}
	_ = s.AppendInteraction(ctx, testutil.NewTestInteraction(t, "acct-2", base))
	_ = s.AppendInteraction(ctx, testutil.NewTestInteraction(t, "", base.Add(time.Hour)))

	got, err := s.ListInteractionsByAccount(ctx, "acct-1", 3)
	if err != nil {
		t.Fatalf("ListInteractionsByAccount failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	for i, want := range []int{4, 3, 2} {
		if !got[i].CreatedAt.Equal(base.Add(time.Duration(want) * time.Second).UTC().Truncate(time.Microsecond)) {
			t.Errorf("record %d out of order: %v", i, got[i].CreatedAt)
		}
	}
}

func TestStore_ListInteractionsByAccount_Empty(t *testing.T) {
	t.Parallel()

	got, err := NewStore().ListInteractionsByAccount(context.Background(), "nobody", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}

func TestStore_AppendNoDeduplication(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore()
	rec := testutil.NewTestInteraction(t, "acct-1", time.Now())

	_ = s.AppendInteraction(ctx, rec)
	_ = s.AppendInteraction(ctx, rec)

	if n := len(s.Interactions()); n != 2 {
		t.Errorf("expected 2 stored records, got %d", n)
	}
}

func TestStore_ConcurrentAppend(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.AppendInteraction(ctx, testutil.NewTestInteraction(t, "acct-1", time.Now()))
		}()
	}
	wg.Wait()

	got, _ := s.ListInteractionsByAccount(ctx, "acct-1", 0)
	if len(got) != 50 {
		t.Errorf("expected 50 records, got %d", len(got))
	}
}
