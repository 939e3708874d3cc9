package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"verity/internal/analysis"
	"verity/internal/store"
	"verity/internal/testsupport"
)

func newResult(t *testing.T, disposition analysis.Disposition) *analysis.Result {
	t.Helper()
	result, err := analysis.NewResult(analysis.Submission{
		ContentRef:    "case-1/message-1",
		ContentType:   analysis.ContentOCR,
		AnalyzerID:    "tesseract-5.3",
		Value:         "Account 12345",
		RawConfidence: 0.72,
	})
	if err != nil {
		t.Fatalf("NewResult failed: %v", err)
	}
	result.Disposition = disposition
	result.VerificationMethod = analysis.MethodConfidenceThreshold
	return result
}

func TestCommitResultPersistsResultAndReviewItem(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	result := newResult(t, analysis.DispositionPending)
	itemID, err := s.CommitResult(ctx, result, &store.ReviewSeed{
		Priority: analysis.PriorityMedium,
		Reason:   analysis.MethodConfidenceThreshold,
	})
	if err != nil {
		t.Fatalf("CommitResult failed: %v", err)
	}
	if itemID == 0 {
		t.Fatal("expected review item id")
	}

	fetched, err := s.GetResult(ctx, result.ID)
	if err != nil {
		t.Fatalf("GetResult failed: %v", err)
	}
	if fetched.Disposition != analysis.DispositionPending {
		t.Fatalf("unexpected disposition %q", fetched.Disposition)
	}

	item, err := s.GetReviewItem(ctx, itemID)
	if err != nil {
		t.Fatalf("GetReviewItem failed: %v", err)
	}
	if item.Status != store.ReviewPending || item.ResultID != result.ID {
		t.Fatalf("unexpected item: %#v", item)
	}
}

func TestCommitResultRejectsUndetermined(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)

	result := newResult(t, analysis.DispositionPending)
	result.Disposition = analysis.DispositionUndetermined
	if _, err := s.CommitResult(context.Background(), result, nil); err == nil {
		t.Fatal("expected error for undetermined disposition")
	}
}

func TestEnqueueReviewIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	result := newResult(t, analysis.DispositionPending)
	if _, err := s.CommitResult(ctx, result, nil); err != nil {
		t.Fatalf("CommitResult failed: %v", err)
	}

	first, created, err := s.EnqueueReview(ctx, result.ID, analysis.PriorityMedium, "low confidence")
	if err != nil {
		t.Fatalf("EnqueueReview failed: %v", err)
	}
	if !created {
		t.Fatal("expected first enqueue to create an item")
	}

	second, created, err := s.EnqueueReview(ctx, result.ID, analysis.PriorityHigh, "duplicate")
	if err != nil {
		t.Fatalf("second EnqueueReview failed: %v", err)
	}
	if created {
		t.Fatal("expected second enqueue to be a no-op")
	}
	if second.ID != first.ID {
		t.Fatalf("expected same open item, got %d and %d", first.ID, second.ID)
	}
}

func TestClaimMutualExclusion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	result := newResult(t, analysis.DispositionPending)
	itemID, err := s.CommitResult(ctx, result, &store.ReviewSeed{Priority: analysis.PriorityMedium})
	if err != nil {
		t.Fatalf("CommitResult failed: %v", err)
	}

	const claimants = 8
	cutoff := time.Now().UTC().Add(-15 * time.Minute)
	var wg sync.WaitGroup
	successes := make(chan string, claimants)
	for i := 0; i < claimants; i++ {
		reviewer := string(rune('a' + i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.ClaimReview(ctx, itemID, reviewer, cutoff); err == nil {
				successes <- reviewer
			}
		}()
	}
	wg.Wait()
	close(successes)

	var winners []string
	for reviewer := range successes {
		winners = append(winners, reviewer)
	}
	if len(winners) != 1 {
		t.Fatalf("expected exactly one successful claim, got %d (%v)", len(winners), winners)
	}
}

func TestClaimExpiredLease(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	result := newResult(t, analysis.DispositionPending)
	itemID, err := s.CommitResult(ctx, result, &store.ReviewSeed{Priority: analysis.PriorityMedium})
	if err != nil {
		t.Fatalf("CommitResult failed: %v", err)
	}

	if _, err := s.ClaimReview(ctx, itemID, "alice", time.Now().UTC().Add(-15*time.Minute)); err != nil {
		t.Fatalf("initial claim failed: %v", err)
	}

	// A cutoff in the past relative to the claim keeps the lease live.
	if _, err := s.ClaimReview(ctx, itemID, "bob", time.Now().UTC().Add(-15*time.Minute)); !errors.Is(err, store.ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed for live lease, got %v", err)
	}

	// A cutoff after the claim timestamp treats the lease as expired.
	item, err := s.ClaimReview(ctx, itemID, "bob", time.Now().UTC().Add(time.Second))
	if err != nil {
		t.Fatalf("expected expired lease to be claimable: %v", err)
	}
	if item.ClaimedBy != "bob" {
		t.Fatalf("expected bob to hold the claim, got %q", item.ClaimedBy)
	}
}

func TestResolveUpdatesLinkedResultAndIsTerminal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	lease := 15 * time.Minute

	result := newResult(t, analysis.DispositionPending)
	itemID, err := s.CommitResult(ctx, result, &store.ReviewSeed{Priority: analysis.PriorityMedium})
	if err != nil {
		t.Fatalf("CommitResult failed: %v", err)
	}
	if _, err := s.ClaimReview(ctx, itemID, "alice", time.Now().UTC().Add(-lease)); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	item, err := s.ResolveReview(ctx, itemID, "alice", store.DecisionCorrected, "Account 12346", lease)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if item.Status != store.ReviewResolved || item.Decision != store.DecisionCorrected {
		t.Fatalf("unexpected resolved item: %#v", item)
	}

	updated, err := s.GetResult(ctx, result.ID)
	if err != nil {
		t.Fatalf("GetResult failed: %v", err)
	}
	if updated.Disposition != analysis.DispositionHumanVerified {
		t.Fatalf("expected human_verified, got %q", updated.Disposition)
	}
	if updated.CorrectedValue != "Account 12346" {
		t.Fatalf("corrected value not stored: %q", updated.CorrectedValue)
	}
	if updated.VerificationMethod != analysis.MethodHumanReview {
		t.Fatalf("expected human_review method, got %q", updated.VerificationMethod)
	}

	// Second resolve must surface, not silently succeed, and must leave the
	// result untouched.
	if _, err := s.ResolveReview(ctx, itemID, "alice", store.DecisionApproved, "", lease); !errors.Is(err, store.ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
	unchanged, err := s.GetResult(ctx, result.ID)
	if err != nil {
		t.Fatalf("GetResult failed: %v", err)
	}
	if unchanged.Disposition != analysis.DispositionHumanVerified || unchanged.CorrectedValue != "Account 12346" {
		t.Fatalf("second resolve mutated result: %#v", unchanged)
	}
}

func TestResolveRequiresClaim(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	lease := 15 * time.Minute

	result := newResult(t, analysis.DispositionPending)
	itemID, err := s.CommitResult(ctx, result, &store.ReviewSeed{Priority: analysis.PriorityMedium})
	if err != nil {
		t.Fatalf("CommitResult failed: %v", err)
	}

	if _, err := s.ResolveReview(ctx, itemID, "alice", store.DecisionApproved, "", lease); !errors.Is(err, store.ErrNotClaimant) {
		t.Fatalf("expected ErrNotClaimant for unclaimed item, got %v", err)
	}

	if _, err := s.ClaimReview(ctx, itemID, "alice", time.Now().UTC().Add(-lease)); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if _, err := s.ResolveReview(ctx, itemID, "bob", store.DecisionApproved, "", lease); !errors.Is(err, store.ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed for non-claimant, got %v", err)
	}
}

func TestListPendingOrdering(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	seeds := []struct {
		priority analysis.Priority
	}{
		{analysis.PriorityLow},
		{analysis.PriorityHigh},
		{analysis.PriorityMedium},
		{analysis.PriorityHigh},
	}
	var ids []int64
	for range seeds {
		ids = append(ids, 0)
	}
	for i, seed := range seeds {
		result := newResult(t, analysis.DispositionPending)
		itemID, err := s.CommitResult(ctx, result, &store.ReviewSeed{Priority: seed.priority})
		if err != nil {
			t.Fatalf("CommitResult failed: %v", err)
		}
		ids[i] = itemID
		time.Sleep(2 * time.Millisecond) // distinct created_at ordering
	}

	items, err := s.ListPendingReviews(ctx, store.ReviewFilter{})
	if err != nil {
		t.Fatalf("ListPendingReviews failed: %v", err)
	}
	if len(items) != len(seeds) {
		t.Fatalf("expected %d items, got %d", len(seeds), len(items))
	}
	// Both high-priority items first (oldest first), then medium, then low.
	want := []int64{ids[1], ids[3], ids[2], ids[0]}
	for i, item := range items {
		if item.ID != want[i] {
			t.Fatalf("position %d: expected item %d, got %d", i, want[i], item.ID)
		}
	}
}

func TestReviewQueueStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	lease := 15 * time.Minute

	for i := 0; i < 3; i++ {
		result := newResult(t, analysis.DispositionPending)
		itemID, err := s.CommitResult(ctx, result, &store.ReviewSeed{Priority: analysis.PriorityMedium})
		if err != nil {
			t.Fatalf("CommitResult failed: %v", err)
		}
		if i == 0 {
			continue // leave one pending
		}
		if _, err := s.ClaimReview(ctx, itemID, "alice", time.Now().UTC().Add(-lease)); err != nil {
			t.Fatalf("claim failed: %v", err)
		}
		decision := store.DecisionApproved
		corrected := ""
		if i == 2 {
			decision = store.DecisionCorrected
			corrected = "fixed"
		}
		if _, err := s.ResolveReview(ctx, itemID, "alice", decision, corrected, lease); err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
	}

	stats, err := s.ReviewQueueStats(ctx, "")
	if err != nil {
		t.Fatalf("ReviewQueueStats failed: %v", err)
	}
	if stats.Pending != 1 || stats.Resolved != 2 {
		t.Fatalf("unexpected counts: %#v", stats)
	}
	if stats.Corrected != 1 || stats.CorrectionRate != 0.5 {
		t.Fatalf("unexpected correction stats: %#v", stats)
	}
	if stats.FalsePositiveRate != 0 {
		t.Fatalf("unexpected false positive rate: %v", stats.FalsePositiveRate)
	}
}

func TestAuditTrailRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	row := &store.AuditRow{
		ID:          "evt-1",
		EntityType:  "analysis_result",
		EntityID:    "res-1",
		Action:      "disposition_set",
		ActorID:     "system",
		DetailsJSON: `{"disposition":"rejected"}`,
	}
	if err := s.InsertAuditEvent(ctx, row); err != nil {
		t.Fatalf("InsertAuditEvent failed: %v", err)
	}

	events, err := s.AuditEventsForEntity(ctx, "analysis_result", "res-1")
	if err != nil {
		t.Fatalf("AuditEventsForEntity failed: %v", err)
	}
	if len(events) != 1 || events[0].Action != "disposition_set" {
		t.Fatalf("unexpected events: %#v", events)
	}
}

func TestCommitResultSurvivesConcurrentWriters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	const writers = 8
	results := make([]*analysis.Result, writers)
	for i := range results {
		results[i] = newResult(t, analysis.DispositionPending)
	}

	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.CommitResult(ctx, results[i], &store.ReviewSeed{
				Priority: analysis.PriorityMedium,
				Reason:   analysis.MethodConfidenceThreshold,
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("writer %d: %v", i, err)
		}
	}
	for _, result := range results {
		if _, err := s.GetResult(ctx, result.ID); err != nil {
			t.Fatalf("result %s not persisted: %v", result.ID, err)
		}
	}
}
