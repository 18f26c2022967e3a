package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"live-auction/internal/auctionerrors"
	"live-auction/internal/idgen"
	"live-auction/internal/models"
	"live-auction/internal/repository"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

type recordingAuditor struct {
	mu      sync.Mutex
	actions []string
	err     error
}

func (a *recordingAuditor) Record(_ context.Context, action, auctionID string, _ map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action+":"+auctionID)
	return a.err
}

func validSpec() models.NewAuction {
	return models.NewAuction{
		Title:         "Vintage camera",
		Description:   "works",
		City:          "Riyadh",
		Owner:         models.Bidder{UserID: "owner", DisplayName: "@owner"},
		StartingPrice: 100,
		Duration:      24 * time.Hour,
	}
}

func TestRegistry_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := repository.NewMockAuctionDB(ctrl)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	reg := New(mockRepo, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	tests := []struct {
		name          string
		spec          func() models.NewAuction
		mockSetup     func()
		expectError   bool
		expectedError error
	}{
		{
			name: "valid_listing",
			spec: validSpec,
			mockSetup: func() {
				mockRepo.EXPECT().AuctionExists(ctx, gomock.Any()).Return(false, nil)
				mockRepo.EXPECT().InsertAuction(ctx, gomock.Any()).Return(nil)
			},
		},
		{
			name: "missing_title",
			spec: func() models.NewAuction {
				s := validSpec()
				s.Title = "  "
				return s
			},
			mockSetup:     func() {},
			expectError:   true,
			expectedError: auctionerrors.ErrInvalidAuction,
		},
		{
			name: "unknown_city",
			spec: func() models.NewAuction {
				s := validSpec()
				s.City = "Atlantis"
				return s
			},
			mockSetup:     func() {},
			expectError:   true,
			expectedError: auctionerrors.ErrInvalidAuction,
		},
		{
			name: "zero_price",
			spec: func() models.NewAuction {
				s := validSpec()
				s.StartingPrice = 0
				return s
			},
			mockSetup:     func() {},
			expectError:   true,
			expectedError: auctionerrors.ErrInvalidAuction,
		},
		{
			name: "duration_too_short",
			spec: func() models.NewAuction {
				s := validSpec()
				s.Duration = time.Minute
				return s
			},
			mockSetup:     func() {},
			expectError:   true,
			expectedError: auctionerrors.ErrInvalidAuction,
		},
		{
			name: "anonymous_owner",
			spec: func() models.NewAuction {
				s := validSpec()
				s.Owner = models.Bidder{}
				return s
			},
			mockSetup:     func() {},
			expectError:   true,
			expectedError: auctionerrors.ErrUnauthenticated,
		},
		{
			name: "duplicate_insert_retries_with_new_id",
			spec: validSpec,
			mockSetup: func() {
				gomock.InOrder(
					mockRepo.EXPECT().AuctionExists(ctx, gomock.Any()).Return(false, nil),
					mockRepo.EXPECT().InsertAuction(ctx, gomock.Any()).Return(auctionerrors.ErrDuplicateID),
					mockRepo.EXPECT().AuctionExists(ctx, gomock.Any()).Return(false, nil),
					mockRepo.EXPECT().InsertAuction(ctx, gomock.Any()).Return(nil),
				)
			},
		},
		{
			name: "insert_fails",
			spec: validSpec,
			mockSetup: func() {
				mockRepo.EXPECT().AuctionExists(ctx, gomock.Any()).Return(false, nil)
				mockRepo.EXPECT().InsertAuction(ctx, gomock.Any()).Return(errors.New("db down"))
			},
			expectError:   true,
			expectedError: nil, // registry wraps the repo error
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.mockSetup()

			a, err := reg.Create(ctx, tc.spec())
			if tc.expectError {
				require.Error(t, err)
				if tc.expectedError != nil {
					require.True(t, errors.Is(err, tc.expectedError), "expected error: %v, got: %v", tc.expectedError, err)
				}
				return
			}

			require.NoError(t, err)
			require.Len(t, a.ID, idgen.Length)
			require.Equal(t, 100.0, a.StartingPrice)
			require.Equal(t, a.StartingPrice, a.CurrentPrice)
			require.Equal(t, now, a.CreatedAt)
			require.Equal(t, now.Add(24*time.Hour), a.EndsAt)
			require.Equal(t, "owner", a.OwnerID)
			require.NotNil(t, a.Images)
		})
	}
}

func TestRegistry_CreateIDSpaceExhausted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := repository.NewMockAuctionDB(ctrl)
	gen := idgen.NewWithSource(func() (string, error) { return "AAAAAA", nil }, idgen.MaxAttempts)
	reg := New(mockRepo, WithIDGenerator(gen))
	ctx := context.Background()

	mockRepo.EXPECT().AuctionExists(ctx, "AAAAAA").Return(true, nil).Times(idgen.MaxAttempts)

	_, err := reg.Create(ctx, validSpec())
	require.True(t, errors.Is(err, auctionerrors.ErrIDSpaceExhausted), "got %v", err)
}

func TestRegistry_CreateDuplicateInsertsExhaust(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := repository.NewMockAuctionDB(ctrl)
	gen := idgen.NewWithSource(func() (string, error) { return "AAAAAA", nil }, idgen.MaxAttempts)
	reg := New(mockRepo, WithIDGenerator(gen))
	ctx := context.Background()

	mockRepo.EXPECT().AuctionExists(ctx, "AAAAAA").Return(false, nil).Times(idgen.MaxAttempts)
	mockRepo.EXPECT().InsertAuction(ctx, gomock.Any()).Return(auctionerrors.ErrDuplicateID).Times(idgen.MaxAttempts)

	_, err := reg.Create(ctx, validSpec())
	require.True(t, errors.Is(err, auctionerrors.ErrIDSpaceExhausted), "got %v", err)
}

// staleExists reports every id as free, like a check that ran before a
// concurrent writer committed the same id.
type staleExists struct {
	*repository.MemoryRepo
}

func (staleExists) AuctionExists(context.Context, string) (bool, error) { return false, nil }

func TestRegistry_CreateRacingSameID(t *testing.T) {
	repo := staleExists{repository.NewMemoryRepo()}
	ctx := context.Background()

	newGen := func() *idgen.Generator {
		ids := []string{"AAAAAA", "BBBBBB"}
		i := 0
		return idgen.NewWithSource(func() (string, error) {
			id := ids[i%len(ids)]
			i++
			return id, nil
		}, idgen.MaxAttempts)
	}
	first := New(repo, WithIDGenerator(newGen()))
	second := New(repo, WithIDGenerator(newGen()))

	a, err := first.Create(ctx, validSpec())
	require.NoError(t, err)
	require.Equal(t, "AAAAAA", a.ID)

	b, err := second.Create(ctx, validSpec())
	require.NoError(t, err)
	require.Equal(t, "BBBBBB", b.ID)
}

func TestRegistry_CreateUniqueIDs(t *testing.T) {
	repo := repository.NewMemoryRepo()
	reg := New(repo)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		a, err := reg.Create(ctx, validSpec())
		require.NoError(t, err)
		require.False(t, seen[a.ID], "duplicate id %s", a.ID)
		seen[a.ID] = true
	}
}

func TestRegistry_Get(t *testing.T) {
	repo := repository.NewMemoryRepo()
	reg := New(repo)
	ctx := context.Background()

	created, err := reg.Create(ctx, validSpec())
	require.NoError(t, err)

	got, err := reg.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)

	_, err = reg.Get(ctx, "nope00")
	require.True(t, errors.Is(err, auctionerrors.ErrNotFound))
	_, err = reg.Get(ctx, "")
	require.True(t, errors.Is(err, auctionerrors.ErrNotFound))
}

func TestRegistry_ListActive(t *testing.T) {
	repo := repository.NewMemoryRepo()
	now := time.Now().UTC()
	reg := New(repo, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	repo.AddAuction(models.Auction{ID: "live01", OwnerID: "o", CreatedAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour)})
	repo.AddAuction(models.Auction{ID: "live02", OwnerID: "o", CreatedAt: now.Add(-time.Minute), EndsAt: now.Add(time.Hour)})
	repo.AddAuction(models.Auction{ID: "over01", OwnerID: "o", CreatedAt: now.Add(-2 * time.Hour), EndsAt: now})
	repo.AddAuction(models.Auction{ID: "hide01", OwnerID: "o", CreatedAt: now, EndsAt: now.Add(time.Hour), Hidden: true})

	active, err := reg.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Equal(t, "live02", active[0].ID)
	require.Equal(t, "live01", active[1].ID)

	own, err := reg.ListByOwner(ctx, "o")
	require.NoError(t, err)
	require.Len(t, own, 4)
}

func TestRegistry_AdminActions(t *testing.T) {
	repo := repository.NewMemoryRepo()
	auditor := &recordingAuditor{}
	reg := New(repo, WithAuditor(auditor))
	ctx := context.Background()

	a, err := reg.Create(ctx, validSpec())
	require.NoError(t, err)

	hidden, err := reg.SetVisibility(ctx, a.ID, true)
	require.NoError(t, err)
	require.True(t, hidden.Hidden)
	require.Equal(t, a.CurrentPrice, hidden.CurrentPrice)

	require.NoError(t, reg.Delete(ctx, a.ID))
	_, err = reg.Get(ctx, a.ID)
	require.True(t, errors.Is(err, auctionerrors.ErrNotFound))

	require.True(t, errors.Is(reg.Delete(ctx, a.ID), auctionerrors.ErrNotFound))
	_, err = reg.SetVisibility(ctx, a.ID, false)
	require.True(t, errors.Is(err, auctionerrors.ErrNotFound))

	require.Equal(t, []string{"item.visibility:" + a.ID, "item.deleted:" + a.ID}, auditor.actions)
}

func TestRegistry_AuditFailureDoesNotFailAction(t *testing.T) {
	repo := repository.NewMemoryRepo()
	reg := New(repo, WithAuditor(&recordingAuditor{err: errors.New("mongo down")}))
	ctx := context.Background()

	a, err := reg.Create(ctx, validSpec())
	require.NoError(t, err)
	_, err = reg.SetVisibility(ctx, a.ID, true)
	require.NoError(t, err)
}
