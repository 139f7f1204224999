package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/offer-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var retryDelays = []time.Duration{100 * time.Millisecond, 300 * time.Millisecond, 500 * time.Millisecond}

// querier объединяет общие методы пула и транзакции.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет fn при конфликтах сериализации, взаимоблокировках и обрывах соединения.
func withRetry(ctx context.Context, fn func() error) error {
	var err error

	for i := 0; i <= len(retryDelays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(retryDelays) {
			break
		}

		timer := time.NewTimer(retryDelays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return storeError(err)
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset by peer")
}

// storeError помечает временные ошибки как model.ErrStoreUnavailable.
func storeError(err error) error {
	if err == nil || errors.Is(err, model.ErrStoreUnavailable) {
		return err
	}
	if isRetryable(err) {
		return fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
	}
	return err
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// ExecTx выполняет fn в транзакции. Ошибка fn откатывает все изменения.
func (r *PostgresRepository) ExecTx(ctx context.Context, fn func(Tx) error) error {
	return r.execTx(ctx, func(tx *pgTx) error {
		return fn(tx)
	})
}

func (r *PostgresRepository) execTx(ctx context.Context, fn func(*pgTx) error) error {
	return withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		if err := fn(&pgTx{tx: tx}); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

// FindOrCreateUser возвращает пользователя по адресу, создавая его с указанной ролью при первом входе.
// Роль существующего пользователя не меняется.
func (r *PostgresRepository) FindOrCreateUser(ctx context.Context, email string, role model.Role) (*model.User, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (email, role) VALUES ($1, $2) ON CONFLICT (email) DO NOTHING`,
		email, string(role),
	)
	if err != nil {
		return nil, storeError(fmt.Errorf("insert user: %w", err))
	}

	var id int64
	err = r.pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, storeError(fmt.Errorf("select user: %w", err))
	}

	return loadUser(ctx, r.pool, id, false)
}

// GetUser возвращает пользователя вместе с сохранёнными и использованными предложениями.
func (r *PostgresRepository) GetUser(ctx context.Context, id int64) (*model.User, error) {
	u, err := loadUser(ctx, r.pool, id, false)
	return u, storeError(err)
}

func loadUser(ctx context.Context, q querier, id int64, lock bool) (*model.User, error) {
	query := `SELECT id, email, role, created_at FROM users WHERE id = $1`
	if lock {
		query += ` FOR NO KEY UPDATE`
	}

	var (
		u    model.User
		role string
	)
	err := q.QueryRow(ctx, query, id).Scan(&u.ID, &u.Email, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	u.Role = model.Role(role)

	u.SavedOffers, err = selectOfferIDs(ctx, q, `SELECT offer_id FROM saved_offers WHERE user_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("select saved offers: %w", err)
	}

	u.ClaimedOffers, err = selectOfferIDs(ctx, q, `SELECT offer_id FROM claims WHERE user_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("select claimed offers: %w", err)
	}

	return &u, nil
}

func selectOfferIDs(ctx context.Context, q querier, query string, userID int64) (model.Set[uuid.UUID], error) {
	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := model.NewSet[uuid.UUID]()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids.Add(id)
	}

	return ids, rows.Err()
}

const offerColumns = `o.id, o.title, o.restaurant_name, o.location, o.phone_number, o.description,
	o.valid_days, o.start_time, o.end_time, o.important_note, o.image_url, o.image_handle,
	o.is_active, o.claims_count, o.created_at, o.updated_at,
	COALESCE((SELECT array_agg(l.user_id ORDER BY l.user_id) FROM offer_likes l WHERE l.offer_id = o.id), '{}')`

func scanOffer(row pgx.Row) (*model.Offer, error) {
	var (
		o       model.Offer
		days    []int16
		likedBy []int64
	)

	err := row.Scan(
		&o.ID, &o.Title, &o.RestaurantName, &o.Location, &o.PhoneNumber, &o.Description,
		&days, &o.StartTime, &o.EndTime, &o.ImportantNote, &o.Image.URL, &o.Image.Handle,
		&o.IsActive, &o.ClaimsCount, &o.CreatedAt, &o.UpdatedAt,
		&likedBy,
	)
	if err != nil {
		return nil, err
	}

	o.ValidDays = make([]time.Weekday, 0, len(days))
	for _, d := range days {
		o.ValidDays = append(o.ValidDays, time.Weekday(d))
	}
	o.LikedBy = model.NewSet(likedBy...)

	return &o, nil
}

func weekdayValues(days []time.Weekday) []int16 {
	res := make([]int16, 0, len(days))
	for _, d := range days {
		res = append(res, int16(d))
	}
	return res
}

func selectOffer(ctx context.Context, q querier, id uuid.UUID, lock bool) (*model.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers o WHERE o.id = $1`
	if lock {
		query += ` FOR NO KEY UPDATE OF o`
	}

	o, err := scanOffer(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOfferNotFound
		}
		return nil, fmt.Errorf("select offer: %w", err)
	}
	return o, nil
}

func selectOffers(ctx context.Context, q querier, query string, args ...any) ([]model.Offer, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select offers: %w", err)
	}
	defer rows.Close()

	var offers []model.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		offers = append(offers, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return offers, nil
}

// ListOffers возвращает все предложения, новые первыми.
func (r *PostgresRepository) ListOffers(ctx context.Context) ([]model.Offer, error) {
	offers, err := selectOffers(ctx, r.pool,
		`SELECT `+offerColumns+` FROM offers o ORDER BY o.created_at DESC, o.id`,
	)
	return offers, storeError(err)
}

// GetOffer возвращает предложение по идентификатору.
func (r *PostgresRepository) GetOffer(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	o, err := selectOffer(ctx, r.pool, id, false)
	return o, storeError(err)
}

// GetOffersByIDs возвращает существующие предложения из списка. Отсутствующие пропускаются.
func (r *PostgresRepository) GetOffersByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Offer, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	offers, err := selectOffers(ctx, r.pool,
		`SELECT `+offerColumns+` FROM offers o WHERE o.id = ANY($1) ORDER BY o.created_at DESC, o.id`,
		ids,
	)
	return offers, storeError(err)
}

// CreateOffer сохраняет новое предложение.
func (r *PostgresRepository) CreateOffer(ctx context.Context, o *model.Offer) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO offers (id, title, restaurant_name, location, phone_number, description,
			valid_days, start_time, end_time, important_note, image_url, image_handle,
			is_active, claims_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 0, $14, $14)`,
		o.ID, o.Title, o.RestaurantName, o.Location, o.PhoneNumber, o.Description,
		weekdayValues(o.ValidDays), o.StartTime, o.EndTime, o.ImportantNote, o.Image.URL, o.Image.Handle,
		o.IsActive, o.CreatedAt,
	)
	if err != nil {
		return storeError(fmt.Errorf("insert offer: %w", err))
	}
	return nil
}

// DeleteOffer удаляет предложение вместе с лайками и возвращает его последнее состояние.
// Записи в saved_offers и claims сохраняются.
func (r *PostgresRepository) DeleteOffer(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	var deleted *model.Offer

	err := r.execTx(ctx, func(tx *pgTx) error {
		o, err := tx.LockOffer(ctx, id)
		if err != nil {
			return err
		}

		if _, err := tx.tx.Exec(ctx, `DELETE FROM offers WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete offer: %w", err)
		}

		deleted = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	return deleted, nil
}

// SaveLoginCode сохраняет хеш одноразового кода.
func (r *PostgresRepository) SaveLoginCode(ctx context.Context, email string, codeHash []byte, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO login_codes (email, code_hash, expires_at) VALUES ($1, $2, $3)`,
		email, codeHash, expiresAt,
	)
	if err != nil {
		return storeError(fmt.Errorf("insert login code: %w", err))
	}
	return nil
}

// ConsumeLoginCode проверяет код и при успехе удаляет все коды адреса.
func (r *PostgresRepository) ConsumeLoginCode(ctx context.Context, email string, codeHash []byte, now time.Time) (bool, error) {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM login_codes
		 WHERE email = $1
		   AND EXISTS (
		       SELECT 1 FROM login_codes
		       WHERE email = $1 AND code_hash = $2 AND expires_at > $3
		   )`,
		email, codeHash, now,
	)
	if err != nil {
		return false, storeError(fmt.Errorf("consume login code: %w", err))
	}
	return cmdTag.RowsAffected() > 0, nil
}

// RecordFailedLogin учитывает неудачную попытку входа по всем кодам адреса
// и удаляет коды, исчерпавшие limit попыток.
func (r *PostgresRepository) RecordFailedLogin(ctx context.Context, email string, limit int) (int64, error) {
	var revoked int64

	err := r.execTx(ctx, func(tx *pgTx) error {
		if _, err := tx.tx.Exec(ctx,
			`UPDATE login_codes SET failed_attempts = failed_attempts + 1 WHERE email = $1`,
			email,
		); err != nil {
			return fmt.Errorf("count failed login: %w", err)
		}

		cmdTag, err := tx.tx.Exec(ctx,
			`DELETE FROM login_codes WHERE email = $1 AND failed_attempts >= $2`,
			email, limit,
		)
		if err != nil {
			return fmt.Errorf("revoke login codes: %w", err)
		}
		revoked = cmdTag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, storeError(err)
	}
	return revoked, nil
}

// DeleteExpiredLoginCodes удаляет просроченные коды и возвращает их количество.
func (r *PostgresRepository) DeleteExpiredLoginCodes(ctx context.Context, now time.Time) (int64, error) {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM login_codes WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, storeError(fmt.Errorf("delete expired login codes: %w", err))
	}
	return cmdTag.RowsAffected(), nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockOffer(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	return selectOffer(ctx, t.tx, id, true)
}

func (t *pgTx) LockUser(ctx context.Context, id int64) (*model.User, error) {
	return loadUser(ctx, t.tx, id, true)
}

func (t *pgTx) OfferExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM offers WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("select offer exists: %w", err)
	}
	return exists, nil
}

func (t *pgTx) SetLike(ctx context.Context, offerID uuid.UUID, userID int64, liked bool) error {
	query := `DELETE FROM offer_likes WHERE offer_id = $1 AND user_id = $2`
	if liked {
		query = `INSERT INTO offer_likes (offer_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	}

	if _, err := t.tx.Exec(ctx, query, offerID, userID); err != nil {
		return fmt.Errorf("set like: %w", err)
	}
	return nil
}

func (t *pgTx) SetSaved(ctx context.Context, userID int64, offerID uuid.UUID, saved bool) error {
	query := `DELETE FROM saved_offers WHERE user_id = $1 AND offer_id = $2`
	if saved {
		query = `INSERT INTO saved_offers (user_id, offer_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	}

	if _, err := t.tx.Exec(ctx, query, userID, offerID); err != nil {
		return fmt.Errorf("set saved: %w", err)
	}
	return nil
}

func (t *pgTx) InsertClaim(ctx context.Context, userID int64, offerID uuid.UUID) (bool, error) {
	cmdTag, err := t.tx.Exec(ctx,
		`INSERT INTO claims (user_id, offer_id) VALUES ($1, $2) ON CONFLICT (user_id, offer_id) DO NOTHING`,
		userID, offerID,
	)
	if err != nil {
		return false, fmt.Errorf("insert claim: %w", err)
	}
	return cmdTag.RowsAffected() == 1, nil
}

func (t *pgTx) IncrementClaims(ctx context.Context, offerID uuid.UUID) error {
	cmdTag, err := t.tx.Exec(ctx,
		`UPDATE offers SET claims_count = claims_count + 1 WHERE id = $1`,
		offerID,
	)
	if err != nil {
		return fmt.Errorf("increment claims: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return model.ErrOfferNotFound
	}
	return nil
}

func (t *pgTx) UpdateOffer(ctx context.Context, o *model.Offer) error {
	cmdTag, err := t.tx.Exec(ctx,
		`UPDATE offers SET title = $2, restaurant_name = $3, location = $4, phone_number = $5,
			description = $6, valid_days = $7, start_time = $8, end_time = $9, important_note = $10,
			image_url = $11, image_handle = $12, is_active = $13, updated_at = $14
		 WHERE id = $1`,
		o.ID, o.Title, o.RestaurantName, o.Location, o.PhoneNumber,
		o.Description, weekdayValues(o.ValidDays), o.StartTime, o.EndTime, o.ImportantNote,
		o.Image.URL, o.Image.Handle, o.IsActive, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update offer: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return model.ErrOfferNotFound
	}
	return nil
}

var _ Tx = (*pgTx)(nil)
