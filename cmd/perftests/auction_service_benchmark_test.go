package perftests

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	auction "live-auction/internal/auctionService"
	"live-auction/internal/coordinator"
	"live-auction/internal/ledger"
	"live-auction/internal/models"
	"live-auction/internal/registry"
	"live-auction/internal/repository"
)

// newStack wires the service on an in-memory repository with no subscribers
func newStack() (*repository.MemoryRepo, *auction.AuctionService) {
	repo := repository.NewMemoryRepo()
	l := ledger.New(repo)
	svc := auction.NewAuctionService(registry.New(repo), l, coordinator.New(repo, l))
	return repo, svc
}

func openAuction(id string, price float64) models.Auction {
	now := time.Now().UTC()
	return models.Auction{
		ID:            id,
		Title:         "Benchmark item " + id,
		City:          "Riyadh",
		OwnerID:       "seller",
		StartingPrice: price,
		CurrentPrice:  price,
		CreatedAt:     now,
		EndsAt:        now.Add(time.Hour),
	}
}

// Benchmark 1: PlaceBid - Isolated Items (Low Contention - Micro Benchmark)
func Benchmark_PlaceBid_Isolated(b *testing.B) {
	repo, svc := newStack()
	ctx := context.Background()

	for i := 0; i < b.N; i++ {
		repo.AddAuction(openAuction(fmt.Sprintf("item_%d", i), 50))
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		bidder := models.Bidder{UserID: fmt.Sprintf("user_%d", i), DisplayName: "bench"}
		itemID := fmt.Sprintf("item_%d", i)
		bidAmount := float64(55 + rand.Intn(100))
		if _, err := svc.PlaceBid(ctx, itemID, bidder, bidAmount); err != nil {
			b.Fatalf("failed to place bid: %v", err)
		}
	}
}

// Benchmark 2: PlaceBid - Shared Item (High Contention - Concurrency Benchmark)
func Benchmark_PlaceBid_ConcurrentSharedItem(b *testing.B) {
	repo, svc := newStack()
	ctx := context.Background()
	repo.AddAuction(openAuction("shared_item_1", 50))

	b.ReportAllocs()
	b.ResetTimer()

	var lastBid int64 = 50

	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		for pb.Next() {
			bidder := models.Bidder{UserID: fmt.Sprintf("user_parallel_%d", rnd.Int()), DisplayName: "bench"}
			nextBid := atomic.AddInt64(&lastBid, int64(rnd.Intn(5)+5))
			_, _ = svc.PlaceBid(ctx, "shared_item_1", bidder, float64(nextBid))
		}
	})
}

// Benchmark 3: MinBid - Concurrent (High Contention)
func Benchmark_MinBid_ConcurrentSharedItem(b *testing.B) {
	repo, svc := newStack()
	ctx := context.Background()
	repo.AddAuction(openAuction("shared_item_1", 50))

	for j := 0; j < 100; j++ {
		bidder := models.Bidder{UserID: fmt.Sprintf("user_%d", j), DisplayName: "bench"}
		_, _ = svc.PlaceBid(ctx, "shared_item_1", bidder, float64(55+j*5))
	}

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := svc.MinBid(ctx, "shared_item_1", ""); err != nil {
				b.Fatalf("failed to get min bid: %v", err)
			}
		}
	})
}

// Benchmark 4: Mixed Workload (Readers + Writers concurrently)
func Benchmark_MixedWorkload_SharedItem(b *testing.B) {
	repo, svc := newStack()
	ctx := context.Background()
	repo.AddAuction(openAuction("shared_item_1", 50))

	b.ReportAllocs()
	b.ResetTimer()

	var lastBid int64 = 50

	// Ratio: 70% readers, 30% writers
	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		for pb.Next() {
			if rnd.Intn(10) < 3 {
				bidder := models.Bidder{UserID: fmt.Sprintf("user_writer_%d", rnd.Int()), DisplayName: "bench"}
				nextBid := atomic.AddInt64(&lastBid, int64(rnd.Intn(5)+5))
				_, _ = svc.PlaceBid(ctx, "shared_item_1", bidder, float64(nextBid))
				continue
			}
			_, _ = svc.GetBidsForAuction(ctx, "shared_item_1", "")
		}
	})
}
