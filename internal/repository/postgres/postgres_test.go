package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"live-auction/internal/auctionerrors"
	"live-auction/internal/models"
	"live-auction/internal/repository"
	"live-auction/internal/repository/postgres"
)

func setupRepository(t *testing.T) *postgres.Repository {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container test skipped in -short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "auction",
				"POSTGRES_PASSWORD": "auction",
				"POSTGRES_DB":       "auction",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, fmt.Sprintf("postgres://auction:auction@%s:%s/auction?sslmode=disable", host, port.Port()))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repo := postgres.NewRepository(pool)
	require.NoError(t, repo.Migrate(ctx))
	return repo
}

func TestRepository_AuctionLifecycle(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	auction := models.Auction{
		ID:            "aB3xY9",
		Title:         "Camera",
		City:          "Jeddah",
		OwnerID:       "owner",
		SellerName:    "@owner",
		StartingPrice: 100,
		CurrentPrice:  100,
		CreatedAt:     now,
		EndsAt:        now.Add(time.Hour),
		Images:        []string{"https://img/1.jpg"},
	}
	require.NoError(t, repo.InsertAuction(ctx, auction))
	require.True(t, errors.Is(repo.InsertAuction(ctx, auction), auctionerrors.ErrDuplicateID))

	exists, err := repo.AuctionExists(ctx, "aB3xY9")
	require.NoError(t, err)
	require.True(t, exists)

	err = repo.RunInTx(ctx, "aB3xY9", func(ctx context.Context, tx repository.BidTx) error {
		a, err := tx.Auction(ctx)
		if err != nil {
			return err
		}
		require.Equal(t, 100.0, a.CurrentPrice)
		if err := tx.AppendBid(ctx, models.Bid{BidID: "b1", AuctionID: "aB3xY9", UserID: "u1", BidderName: "@u1", Amount: 105, CreatedAt: now}); err != nil {
			return err
		}
		return tx.UpdateCurrentPrice(ctx, 105)
	})
	require.NoError(t, err)

	got, err := repo.GetAuction(ctx, "aB3xY9")
	require.NoError(t, err)
	require.Equal(t, 105.0, got.CurrentPrice)
	require.Equal(t, 1, got.BidCount)

	// a failing commit leaves no trace
	err = repo.RunInTx(ctx, "aB3xY9", func(ctx context.Context, tx repository.BidTx) error {
		if err := tx.AppendBid(ctx, models.Bid{BidID: "b2", AuctionID: "aB3xY9", UserID: "u2", Amount: 200, CreatedAt: now}); err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)
	bids, err := repo.GetBidsByAuction(ctx, "aB3xY9")
	require.NoError(t, err)
	require.Len(t, bids, 1)

	hidden, err := repo.SetHidden(ctx, "aB3xY9", true)
	require.NoError(t, err)
	require.True(t, hidden.Hidden)

	active, err := repo.ListAuctions(ctx, repository.AuctionFilter{ActiveAt: now})
	require.NoError(t, err)
	require.Empty(t, active)
	own, err := repo.ListAuctions(ctx, repository.AuctionFilter{OwnerID: "owner", IncludeHidden: true})
	require.NoError(t, err)
	require.Len(t, own, 1)

	require.NoError(t, repo.DeleteAuction(ctx, "aB3xY9"))
	userBids, err := repo.GetBidsByUser(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, userBids)
	_, err = repo.GetAuction(ctx, "aB3xY9")
	require.True(t, errors.Is(err, auctionerrors.ErrNotFound))
}
