package postgres

import (
	"context"
	_ "embed"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"live-auction/internal/auctionerrors"
	"live-auction/internal/models"
	"live-auction/internal/observability"
	"live-auction/internal/repository"
)

const uniqueViolationCode = "23505"

//go:embed schema.sql
var schema string

const itemColumns = `i.id, i.title, i.description, i.city, i.owner_id, i.seller_name,
	i.starting_price, i.current_price, i.created_at, i.ends_at, i.hidden, i.images, i.thumbnails`

const bidCountColumn = `(SELECT count(*) FROM bids b WHERE b.item_id = i.id)`

// Repository is the Postgres implementation of repository.AuctionDB
type Repository struct {
	pool *pgxpool.Pool
}

var _ repository.AuctionDB = (*Repository)(nil)

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Migrate creates the tables if they do not exist yet.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return errors.Wrap(err, "postgres: apply schema")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuction(row rowScanner) (models.Auction, error) {
	var a models.Auction
	err := row.Scan(&a.ID, &a.Title, &a.Description, &a.City, &a.OwnerID, &a.SellerName,
		&a.StartingPrice, &a.CurrentPrice, &a.CreatedAt, &a.EndsAt, &a.Hidden, &a.Images, &a.Thumbnails, &a.BidCount)
	return a, err
}

func notFound(err error, auctionID string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return errors.Mark(errors.Newf("postgres: auction %s", auctionID), auctionerrors.ErrNotFound)
	}
	return err
}

func (r *Repository) GetAuction(ctx context.Context, auctionID string) (models.Auction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+`, `+bidCountColumn+` FROM items i WHERE i.id = $1`, auctionID)
	a, err := scanAuction(row)
	if err != nil {
		return models.Auction{}, errors.Wrap(notFound(err, auctionID), "postgres: get auction")
	}
	return a, nil
}

func (r *Repository) AuctionExists(ctx context.Context, auctionID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM items WHERE id = $1)`, auctionID).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "postgres: auction exists")
	}
	return exists, nil
}

func (r *Repository) InsertAuction(ctx context.Context, a models.Auction) error {
	images, thumbs := a.Images, a.Thumbnails
	if images == nil {
		images = []string{}
	}
	if thumbs == nil {
		thumbs = []string{}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO items (id, title, description, city, owner_id, seller_name,
			starting_price, current_price, created_at, ends_at, hidden, images, thumbnails)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, a.ID, a.Title, a.Description, a.City, a.OwnerID, a.SellerName,
		a.StartingPrice, a.CurrentPrice, a.CreatedAt, a.EndsAt, a.Hidden, images, thumbs)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return errors.Mark(errors.Wrapf(err, "postgres: duplicate id %s", a.ID), auctionerrors.ErrDuplicateID)
		}
		return errors.Wrap(err, "postgres: insert auction")
	}
	return nil
}

func (r *Repository) ListAuctions(ctx context.Context, f repository.AuctionFilter) ([]models.Auction, error) {
	var activeAt *time.Time
	if !f.ActiveAt.IsZero() {
		activeAt = &f.ActiveAt
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+itemColumns+`, `+bidCountColumn+`
		FROM items i
		WHERE ($1::timestamptz IS NULL OR i.ends_at > $1)
		  AND ($2 = '' OR i.owner_id = $2)
		  AND ($3 OR NOT i.hidden)
		ORDER BY i.created_at DESC, i.id ASC
	`, activeAt, f.OwnerID, f.IncludeHidden)
	if err != nil {
		return nil, errors.Wrap(err, "postgres: list auctions")
	}
	defer rows.Close()

	out := []models.Auction{}
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, errors.Wrap(err, "postgres: scan auction")
		}
		out = append(out, a)
	}
	return out, errors.Wrap(rows.Err(), "postgres: list auctions")
}

func (r *Repository) SetHidden(ctx context.Context, auctionID string, hidden bool) (models.Auction, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE items i SET hidden = $2 WHERE i.id = $1
		RETURNING `+itemColumns+`, `+bidCountColumn, auctionID, hidden)
	a, err := scanAuction(row)
	if err != nil {
		return models.Auction{}, errors.Wrap(notFound(err, auctionID), "postgres: set hidden")
	}
	return a, nil
}

func (r *Repository) DeleteAuction(ctx context.Context, auctionID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, auctionID)
	if err != nil {
		return errors.Wrap(err, "postgres: delete auction")
	}
	if tag.RowsAffected() == 0 {
		return errors.Mark(errors.Newf("postgres: delete auction %s", auctionID), auctionerrors.ErrNotFound)
	}
	return nil
}

func (r *Repository) GetBidsByAuction(ctx context.Context, auctionID string) ([]models.Bid, error) {
	exists, err := r.AuctionExists(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.Mark(errors.Newf("postgres: bids for auction %s", auctionID), auctionerrors.ErrNotFound)
	}
	return r.queryBids(ctx, `
		SELECT id, item_id, user_id, bidder_name, amount, created_at
		FROM bids WHERE item_id = $1 ORDER BY seq DESC
	`, auctionID)
}

func (r *Repository) GetBidsByUser(ctx context.Context, userID string) ([]models.Bid, error) {
	return r.queryBids(ctx, `
		SELECT id, item_id, user_id, bidder_name, amount, created_at
		FROM bids WHERE user_id = $1 ORDER BY created_at DESC, seq DESC
	`, userID)
}

func (r *Repository) queryBids(ctx context.Context, query string, arg string) ([]models.Bid, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, errors.Wrap(err, "postgres: query bids")
	}
	defer rows.Close()

	out := []models.Bid{}
	for rows.Next() {
		var b models.Bid
		if err := rows.Scan(&b.BidID, &b.AuctionID, &b.UserID, &b.BidderName, &b.Amount, &b.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "postgres: scan bid")
		}
		out = append(out, b)
	}
	return out, errors.Wrap(rows.Err(), "postgres: query bids")
}

// RunInTx wraps fn in a single transaction. The tx's Auction call takes a
// row lock, so concurrent commits on the same item serialize in the database
// as well as in the coordinator.
func (r *Repository) RunInTx(ctx context.Context, auctionID string, fn func(ctx context.Context, tx repository.BidTx) error) error {
	start := time.Now()
	defer func() { observability.DBTxDuration.Observe(time.Since(start).Seconds()) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &bidTx{tx: tx, auctionID: auctionID}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "postgres: commit")
	}
	return nil
}

type bidTx struct {
	tx        pgx.Tx
	auctionID string
}

func (t *bidTx) Auction(ctx context.Context) (models.Auction, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+itemColumns+`, `+bidCountColumn+`
		FROM items i WHERE i.id = $1 FOR UPDATE`, t.auctionID)
	a, err := scanAuction(row)
	if err != nil {
		return models.Auction{}, errors.Wrap(notFound(err, t.auctionID), "postgres: lock auction")
	}
	return a, nil
}

func (t *bidTx) AppendBid(ctx context.Context, b models.Bid) error {
	if b.AuctionID != t.auctionID {
		return errors.Mark(errors.Newf("postgres: bid for %s in tx for %s", b.AuctionID, t.auctionID), auctionerrors.ErrInvalidBid)
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO bids (id, item_id, user_id, bidder_name, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, b.BidID, b.AuctionID, b.UserID, b.BidderName, b.Amount, b.CreatedAt)
	return errors.Wrap(err, "postgres: append bid")
}

func (t *bidTx) UpdateCurrentPrice(ctx context.Context, price float64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE items SET current_price = $2 WHERE id = $1`, t.auctionID, price)
	if err != nil {
		return errors.Wrap(err, "postgres: update current price")
	}
	if tag.RowsAffected() == 0 {
		return errors.Mark(errors.Newf("postgres: update price %s", t.auctionID), auctionerrors.ErrNotFound)
	}
	return nil
}
