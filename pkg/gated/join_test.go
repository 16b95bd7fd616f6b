package gated

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestJoin_Empty(t *testing.T) {
	if err := Join(context.Background()); err != nil {
		t.Errorf("Join() = %v", err)
	}
}

func TestJoin_AllSucceed(t *testing.T) {
	var n int32
	task := func(ctx context.Context) error {
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&n, 1)
		return nil
	}

	if err := Join(context.Background(), task, task, task); err != nil {
		t.Fatalf("Join() = %v", err)
	}
	if n != 3 {
		t.Errorf("completed = %d, want 3", n)
	}
}

func TestJoin_FailureDoesNotCancelSiblings(t *testing.T) {
	boom := errors.New("boom")
	siblingDone := make(chan error, 1)

	err := Join(context.Background(),
		func(ctx context.Context) error { return boom },
		func(ctx context.Context) error {
			time.Sleep(20 * time.Millisecond)
			siblingDone <- ctx.Err()
			return nil
		},
	)
	if !errors.Is(err, boom) {
		t.Fatalf("Join() = %v, want %v", err, boom)
	}

	select {
	case ctxErr := <-siblingDone:
		if ctxErr != nil {
			t.Errorf("sibling context cancelled: %v", ctxErr)
		}
	case <-time.After(time.Second):
		t.Fatal("sibling never finished")
	}
}

func TestJoin_ContextDone(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	release := make(chan struct{})
	defer close(release)

	err := Join(ctx, func(context.Context) error {
		<-release
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Join() = %v, want deadline exceeded", err)
	}
}
