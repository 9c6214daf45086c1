package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tenderportal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTx выполняет fn в транзакции; при ошибке откатывает.
func (s *Storage) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// User (Пользователь)

func (s *Storage) CreateUser(ctx context.Context, u *models.User) error {
	query := `
        INSERT INTO app_user (email, password_hash, full_name, company, role, is_active)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`
	err := s.db.QueryRowContext(ctx, query,
		u.Email, u.PasswordHash, u.FullName, u.Company, u.Role, u.IsActive).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *Storage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u := &models.User{}
	query := `SELECT * FROM app_user WHERE id=$1`
	if err := s.db.GetContext(ctx, u, query, id); err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u := &models.User{}
	query := `SELECT * FROM app_user WHERE lower(email)=lower($1)`
	if err := s.db.GetContext(ctx, u, query, email); err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (s *Storage) GetUsersByIDs(ctx context.Context, ids []int64) ([]models.User, error) {
	users := []models.User{}
	if len(ids) == 0 {
		return users, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM app_user WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	err = s.db.SelectContext(ctx, &users, s.db.Rebind(query), args...)
	return users, err
}

func (s *Storage) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	users := []models.User{}
	query := `SELECT * FROM app_user ORDER BY id ASC LIMIT $1 OFFSET $2`
	err := s.db.SelectContext(ctx, &users, query, limit, offset)
	return users, err
}

func (s *Storage) UpdateUser(ctx context.Context, u *models.User) error {
	query := `
        UPDATE app_user
        SET full_name=$1, company=$2, is_active=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at`
	err := s.db.QueryRowContext(ctx, query, u.FullName, u.Company, u.IsActive, u.ID).Scan(&u.UpdatedAt)
	return notFound(err)
}

func (s *Storage) CountAdmins(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(1) FROM app_user WHERE role=$1`
	err := s.db.GetContext(ctx, &count, query, models.RoleAdmin)
	return count, err
}

// Tender (Тендер)

const tenderSelect = `
        SELECT t.id, t.title, t.description, t.category, t.budget, t.status, t.deadline,
               t.created_by, t.winning_bid_id, t.version, t.created_at, t.updated_at,
               (SELECT COUNT(1) FROM bid b WHERE b.tender_id = t.id) AS bid_count
        FROM tender t`

func (s *Storage) CreateTender(ctx context.Context, t *models.Tender) error {
	query := `
        INSERT INTO tender
            (title, description, category, budget, status, deadline, created_by, version)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, 1)
        RETURNING id, version, created_at, updated_at`
	return s.db.QueryRowContext(ctx, query,
		t.Title, t.Description, t.Category, t.Budget, t.Status, t.Deadline, t.CreatedBy).
		Scan(&t.ID, &t.Version, &t.CreatedAt, &t.UpdatedAt)
}

func (s *Storage) GetTender(ctx context.Context, id int64) (*models.Tender, error) {
	t := &models.Tender{}
	if err := s.db.GetContext(ctx, t, tenderSelect+` WHERE t.id=$1`, id); err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

func (s *Storage) ListTenders(ctx context.Context, f TenderFilter) ([]models.Tender, error) {
	var (
		conds []string
		args  []interface{}
	)
	if len(f.Statuses) > 0 {
		args = append(args, pq.Array(statusStrings(f.Statuses)))
		conds = append(conds, fmt.Sprintf("t.status = ANY($%d)", len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		conds = append(conds, fmt.Sprintf("t.category = $%d", len(args)))
	}

	query := tenderSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY t.created_at DESC, t.id DESC"
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)

	tenders := []models.Tender{}
	if err := s.db.SelectContext(ctx, &tenders, query, args...); err != nil {
		return nil, err
	}
	return tenders, nil
}

// UpdateDraftTender сохраняет правки черновика, если его версия не изменилась.
func (s *Storage) UpdateDraftTender(ctx context.Context, t *models.Tender) error {
	query := `
        UPDATE tender
        SET title=$1, description=$2, category=$3, budget=$4, deadline=$5,
            version=version+1, updated_at=NOW()
        WHERE id=$6 AND version=$7 AND status=$8
        RETURNING version, updated_at`
	err := s.db.QueryRowContext(ctx, query,
		t.Title, t.Description, t.Category, t.Budget, t.Deadline,
		t.ID, t.Version, models.TenderDraft).
		Scan(&t.Version, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrConflict
	}
	return err
}

// TransitionTender меняет статус и пишет событие в журнал в одной транзакции.
func (s *Storage) TransitionTender(ctx context.Context, tr TenderTransition) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
            UPDATE tender
            SET status=$1, winning_bid_id=COALESCE($2, winning_bid_id),
                version=version+1, updated_at=NOW()
            WHERE id=$3 AND status=$4 AND version=$5`,
			tr.To, tr.WinningBidID, tr.TenderID, tr.From, tr.Version)
		if err != nil {
			return err
		}
		if err := expectOneRow(res); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
            INSERT INTO tender_event (tender_id, from_status, to_status, actor_id)
            VALUES ($1, $2, $3, $4)`,
			tr.TenderID, tr.From, tr.To, tr.ActorID)
		return err
	})
}

// DeleteTender удаляет тендер только если на него нет предложений.
func (s *Storage) DeleteTender(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		// блокировка строки тендера сериализует удаление с вставкой предложения (FK)
		var locked int64
		err := tx.GetContext(ctx, &locked, `SELECT id FROM tender WHERE id=$1 FOR UPDATE`, id)
		if err != nil {
			return notFound(err)
		}
		res, err := tx.ExecContext(ctx, `
            DELETE FROM tender
            WHERE id=$1 AND NOT EXISTS (SELECT 1 FROM bid WHERE tender_id=$1)`, id)
		if err != nil {
			return err
		}
		return expectOneRow(res)
	})
}

func (s *Storage) ListExpiredTenders(ctx context.Context, before time.Time) ([]models.Tender, error) {
	tenders := []models.Tender{}
	query := tenderSelect + ` WHERE t.status=$1 AND t.deadline <= $2 ORDER BY t.deadline ASC`
	err := s.db.SelectContext(ctx, &tenders, query, models.TenderBidding, before)
	return tenders, err
}

func (s *Storage) ListTenderEvents(ctx context.Context, tenderID int64) ([]models.TenderEvent, error) {
	events := []models.TenderEvent{}
	query := `SELECT * FROM tender_event WHERE tender_id=$1 ORDER BY id ASC`
	err := s.db.SelectContext(ctx, &events, query, tenderID)
	return events, err
}

// Bid (Предложение)

// CreateBid вставляет предложение только пока тендер в статусе bidding;
// иначе ErrConflict. FOR SHARE ждет незавершенную смену статуса тендера
// и перепроверяет условие на новой версии строки.
func (s *Storage) CreateBid(ctx context.Context, b *models.Bid) error {
	query := `
        INSERT INTO bid
            (tender_id, bidder_id, amount, proposal, status, version)
        SELECT $1, $2, $3, $4, $5, 1
        FROM tender
        WHERE id=$1 AND status=$6
        FOR SHARE
        RETURNING id, status, version, created_at, updated_at`
	err := s.db.QueryRowContext(ctx, query,
		b.TenderID, b.BidderID, b.Amount, b.Proposal, models.BidPending, models.TenderBidding).
		Scan(&b.ID, &b.Status, &b.Version, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrConflict
	}
	return err
}

func (s *Storage) GetBid(ctx context.Context, id int64) (*models.Bid, error) {
	b := &models.Bid{}
	query := `SELECT * FROM bid WHERE id=$1`
	if err := s.db.GetContext(ctx, b, query, id); err != nil {
		return nil, notFound(err)
	}
	return b, nil
}

func (s *Storage) ListBidsForTender(ctx context.Context, tenderID int64) ([]models.Bid, error) {
	bids := []models.Bid{}
	query := `SELECT * FROM bid WHERE tender_id=$1 ORDER BY amount ASC, id ASC`
	err := s.db.SelectContext(ctx, &bids, query, tenderID)
	return bids, err
}

func (s *Storage) ListBidsByBidder(ctx context.Context, bidderID int64, limit, offset int) ([]models.Bid, error) {
	bids := []models.Bid{}
	query := `
        SELECT * FROM bid
        WHERE bidder_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2 OFFSET $3`
	err := s.db.SelectContext(ctx, &bids, query, bidderID, limit, offset)
	return bids, err
}

// DecideBid фиксирует решение, если предложение всё ещё pending с той же версией
// и родительский тендер принимает решения. Строка тендера блокируется FOR SHARE
// до конца транзакции, поэтому отмена тендера не проходит параллельно с решением.
func (s *Storage) DecideBid(ctx context.Context, d BidDecision) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var status models.TenderStatus
		err := tx.GetContext(ctx, &status, `
            SELECT t.status FROM tender t
            JOIN bid b ON b.tender_id = t.id
            WHERE b.id=$1
            FOR SHARE OF t`, d.BidID)
		if err != nil {
			return notFound(err)
		}
		if status != models.TenderBidding && status != models.TenderReview {
			return ErrConflict
		}
		res, err := tx.ExecContext(ctx, `
            UPDATE bid
            SET status=$1, decided_by=$2, decided_at=$3, version=version+1, updated_at=NOW()
            WHERE id=$4 AND version=$5 AND status=$6`,
			d.Status, d.DeciderID, d.DecidedAt, d.BidID, d.Version, models.BidPending)
		if err != nil {
			return err
		}
		return expectOneRow(res)
	})
}

// System config (Настройки)

func (s *Storage) GetSetting(ctx context.Context, key string) (string, error) {
	var setting models.Setting
	err := s.db.GetContext(ctx, &setting, `SELECT key, value, updated_at FROM system_config WHERE key=$1`, key)
	if err != nil {
		return "", notFound(err)
	}
	return setting.Value, nil
}

func (s *Storage) PutSetting(ctx context.Context, key, value string) error {
	query := `
        INSERT INTO system_config (key, value, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
    `
	_, err := s.db.ExecContext(ctx, query, key, value)
	return err
}
