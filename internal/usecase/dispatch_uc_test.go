// File: internal/usecase/dispatch_uc_test.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"event-keyword-monitor/internal/domain/model"

	"github.com/rs/zerolog"
)

func testSub(id, userID, dest string, keywords ...string) *model.Subscription {
	return &model.Subscription{
		ID:          id,
		UserID:      userID,
		Channel:     model.ChannelTelegram,
		Destination: dest,
		Keywords:    keywords,
		Active:      true,
	}
}

func testItem(id, title string) *model.WorkItem {
	return &model.WorkItem{ID: id, Title: title, StartsOn: time.Now().AddDate(0, 0, 7)}
}

func newDispatchFixture() (*memSubRepo, *memItemRepo, *mockNotifier, DispatchUseCase) {
	subs := newMemSubRepo()
	items := newMemItemRepo()
	notifier := newMockNotifier()
	nop := zerolog.Nop()
	uc := NewDispatchUseCase(subs, items, notifier, &fakeTxManager{}, 100, &nop)
	return subs, items, notifier, uc
}

func TestDispatchRun_MatchesAndBundles(t *testing.T) {
	ctx := context.Background()
	subs, items, notifier, uc := newDispatchFixture()

	subs.store["s1"] = testSub("s1", "alice", "111", "AI", "robotics")
	items.store["i1"] = testItem("i1", "AI Conference 2026")
	items.store["i2"] = testItem("i2", "Robotics Expo")
	items.store["i3"] = testItem("i3", "Wine Tasting Evening")

	outcome, err := uc.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	msg := notifier.sentTo("111")
	if msg == nil {
		t.Fatal("expected one notification to destination 111")
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected a single bundled message, got %d", len(notifier.sent))
	}
	if !strings.Contains(msg.Body, "AI Conference 2026") || !strings.Contains(msg.Body, "Robotics Expo") {
		t.Fatalf("digest body missing matched titles: %q", msg.Body)
	}
	if strings.Contains(msg.Body, "Wine Tasting") {
		t.Fatalf("digest body contains unmatched title: %q", msg.Body)
	}

	if outcome.ItemsScanned != 1 { // users matched
		t.Fatalf("users matched = %d, want 1", outcome.ItemsScanned)
	}
	if outcome.ItemsNew != 1 { // notifications sent
		t.Fatalf("notifications sent = %d, want 1", outcome.ItemsNew)
	}
	if got := outcome.Payload["items_matched"]; got != 2 {
		t.Fatalf("items_matched = %v, want 2", got)
	}
}

func TestDispatchRun_CaseInsensitiveMatch(t *testing.T) {
	ctx := context.Background()
	subs, items, notifier, uc := newDispatchFixture()

	subs.store["s1"] = testSub("s1", "alice", "111", "jazz")
	items.store["i1"] = testItem("i1", "Midnight JAZZ Session")

	if _, err := uc.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if notifier.sentTo("111") == nil {
		t.Fatal("expected case-insensitive keyword to match")
	}
}

func TestDispatchRun_EmptyKeywordSetNeverMatches(t *testing.T) {
	ctx := context.Background()
	subs, items, notifier, uc := newDispatchFixture()

	subs.store["s1"] = testSub("s1", "alice", "111") // no keywords
	items.store["i1"] = testItem("i1", "Anything At All")

	outcome, err := uc.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("expected no notifications, got %d", len(notifier.sent))
	}
	if items.store["i1"].Processed {
		t.Fatal("unmatched item must stay unprocessed")
	}
	if outcome.ItemsScanned != 0 || outcome.ItemsNew != 0 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

func TestDispatchRun_SkipsAddresslessSubscription(t *testing.T) {
	ctx := context.Background()
	subs, items, notifier, uc := newDispatchFixture()

	addressless := testSub("s1", "alice", "x", "AI")
	addressless.Destination = "   "
	subs.store["s1"] = addressless
	items.store["i1"] = testItem("i1", "AI Conference 2026")

	if _, err := uc.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("addressless subscription must not receive anything, got %d sends", len(notifier.sent))
	}
}

func TestDispatchRun_PerRecipientFailureContinues(t *testing.T) {
	ctx := context.Background()
	subs, items, notifier, uc := newDispatchFixture()

	subs.store["s1"] = testSub("s1", "alice", "111", "AI")
	subs.store["s2"] = testSub("s2", "bob", "222", "AI")
	items.store["i1"] = testItem("i1", "AI Conference 2026")
	notifier.failFor["111"] = errors.New("chat not found")

	outcome, err := uc.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if notifier.sentTo("222") == nil {
		t.Fatal("second recipient must still get the notification")
	}
	if outcome.ItemsNew != 1 {
		t.Fatalf("notifications sent = %d, want 1", outcome.ItemsNew)
	}
	// Matched items are processed even when a dispatch failed.
	if !items.store["i1"].Processed {
		t.Fatal("matched item must be marked processed despite a failed send")
	}
}

func TestDispatchRun_IdempotentAcrossPasses(t *testing.T) {
	ctx := context.Background()
	subs, items, notifier, uc := newDispatchFixture()

	subs.store["s1"] = testSub("s1", "alice", "111", "AI")
	items.store["i1"] = testItem("i1", "AI Conference 2026")

	if _, err := uc.Run(ctx); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if _, err := uc.Run(ctx); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("second pass must not re-notify a processed item, total sends = %d", len(notifier.sent))
	}
}

func TestDispatchRun_ShortCircuits(t *testing.T) {
	ctx := context.Background()

	t.Run("no active subscriptions", func(t *testing.T) {
		_, items, notifier, uc := newDispatchFixture()
		items.store["i1"] = testItem("i1", "AI Conference 2026")

		outcome, err := uc.Run(ctx)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if len(notifier.sent) != 0 || outcome.ItemsScanned != 0 {
			t.Fatalf("expected empty pass, got %+v", outcome)
		}
	})

	t.Run("no unprocessed items", func(t *testing.T) {
		subs, _, notifier, uc := newDispatchFixture()
		subs.store["s1"] = testSub("s1", "alice", "111", "AI")

		outcome, err := uc.Run(ctx)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if len(notifier.sent) != 0 || outcome.ItemsNew != 0 {
			t.Fatalf("expected empty pass, got %+v", outcome)
		}
	})
}

func TestDispatchRun_RepoErrorPropagates(t *testing.T) {
	ctx := context.Background()
	subs, _, _, uc := newDispatchFixture()
	subs.listErr = errors.New("db down")

	if _, err := uc.Run(ctx); err == nil {
		t.Fatal("expected error from subscription repo to propagate")
	}
}

func TestDispatchRun_SharedDestinationGetsOneEntryPerItem(t *testing.T) {
	ctx := context.Background()
	subs, items, notifier, uc := newDispatchFixture()

	// Two subscriptions, same destination, overlapping keywords.
	subs.store["s1"] = testSub("s1", "alice", "111", "AI")
	subs.store["s2"] = testSub("s2", "alice", "111", "conference")
	items.store["i1"] = testItem("i1", "AI Conference 2026")

	if _, err := uc.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	msg := notifier.sentTo("111")
	if msg == nil {
		t.Fatal("expected a notification")
	}
	if got := strings.Count(msg.Body, "AI Conference 2026"); got != 1 {
		t.Fatalf("title appears %d times in the digest, want 1:\n%s", got, msg.Body)
	}
}

func TestDispatchRun_MarksBatchInOneTransaction(t *testing.T) {
	ctx := context.Background()
	subs := newMemSubRepo()
	items := newMemItemRepo()
	notifier := newMockNotifier()
	txm := &fakeTxManager{}
	nop := zerolog.Nop()
	uc := NewDispatchUseCase(subs, items, notifier, txm, 100, &nop)

	subs.store["s1"] = testSub("s1", "alice", "111", "event")
	items.store["i1"] = testItem("i1", "Event One")
	items.store["i2"] = testItem("i2", "Event Two")

	if _, err := uc.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if txm.callCount() != 1 {
		t.Fatalf("transaction count = %d, want 1 for the whole batch", txm.callCount())
	}
	if !items.store["i1"].Processed || !items.store["i2"].Processed {
		t.Fatal("both matched items must be marked processed")
	}

	// A pass with nothing matched opens no transaction.
	if _, err := uc.Run(ctx); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if txm.callCount() != 1 {
		t.Fatalf("transaction count = %d, want still 1 (empty batch)", txm.callCount())
	}
}

func TestDispatchRun_MarkFailureRollsBackCount(t *testing.T) {
	ctx := context.Background()
	subs := newMemSubRepo()
	items := newMemItemRepo()
	notifier := newMockNotifier()
	txm := &fakeTxManager{}
	nop := zerolog.Nop()
	uc := NewDispatchUseCase(subs, items, notifier, txm, 100, &nop)

	subs.store["s1"] = testSub("s1", "alice", "111", "event")
	items.store["i1"] = testItem("i1", "Event One")
	items.markErr = errors.New("db down")

	outcome, err := uc.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Dispatch already happened; only the processed count reflects the
	// failed transaction.
	if outcome.ItemsNew != 1 {
		t.Fatalf("notifications sent = %d, want 1", outcome.ItemsNew)
	}
}

func TestDispatchRun_RespectsBatchLimit(t *testing.T) {
	ctx := context.Background()
	subs := newMemSubRepo()
	items := newMemItemRepo()
	notifier := newMockNotifier()
	nop := zerolog.Nop()
	uc := NewDispatchUseCase(subs, items, notifier, &fakeTxManager{}, 1, &nop)

	subs.store["s1"] = testSub("s1", "alice", "111", "event")
	items.store["i1"] = testItem("i1", "Event One")
	items.store["i2"] = testItem("i2", "Event Two")

	outcome, err := uc.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := outcome.Payload["items_scanned"]; got != 1 {
		t.Fatalf("items_scanned = %v, want 1 (batch limit)", got)
	}
}
